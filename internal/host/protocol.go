// Package host implements the side of the viewer protocol that owns the
// document: it applies edits, persists exports and reports changes back.
package host

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/oakwood-commons/jtv/internal/navigator"
	"github.com/oakwood-commons/jtv/internal/tree"
)

// Message commands.
const (
	CommandUpdateValue     = "updateValue"
	CommandExportCSV       = "exportToCsv"
	CommandExportXLSX      = "exportToXlsx"
	CommandDocumentUpdated = "documentUpdated"
	CommandExported        = "exported"
	CommandError           = "error"
)

var (
	// ErrUnknownCommand is returned when a message names no known command.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrMalformedMessage is returned for messages that do not decode.
	ErrMalformedMessage = errors.New("malformed message")
)

// Request is a message sent by a viewer to the host.
type Request interface {
	Command() string
	RequestID() string
}

// UpdateValue asks the host to write one value. Path starts with the root
// label and runs through the frame that was displayed. Index is the decimal
// source index of the edited row, when there is one.
type UpdateValue struct {
	ID       string   `json:"id"`
	Path     []string `json:"path"`
	Key      *string  `json:"key"`
	Index    *string  `json:"index"`
	NewValue string   `json:"newValue"`
}

func (UpdateValue) Command() string     { return CommandUpdateValue }
func (m UpdateValue) RequestID() string { return m.ID }

func (m UpdateValue) MarshalJSON() ([]byte, error) {
	type alias UpdateValue
	return json.Marshal(struct {
		Command string `json:"command"`
		alias
	}{m.Command(), alias(m)})
}

// Labels returns Path without its leading root label.
func (m UpdateValue) Labels() ([]string, error) {
	if len(m.Path) == 0 || m.Path[0] != navigator.RootLabel {
		return nil, fmt.Errorf("%w: path must start with %q", ErrMalformedMessage, navigator.RootLabel)
	}
	return m.Path[1:], nil
}

// Target converts Index and Key into a write target.
func (m UpdateValue) Target() (navigator.Target, error) {
	var t navigator.Target
	if m.Index != nil {
		i, err := strconv.Atoi(*m.Index)
		if err != nil || i < 0 {
			return t, fmt.Errorf("%w: index %q is not a non-negative integer", ErrMalformedMessage, *m.Index)
		}
		t.Index = &i
	}
	if m.Key != nil {
		k := *m.Key
		t.Key = &k
	}
	return t, nil
}

// ExportCSV asks the host to persist serialized CSV text.
type ExportCSV struct {
	ID        string `json:"id"`
	CSVString string `json:"csvString"`
}

func (ExportCSV) Command() string     { return CommandExportCSV }
func (m ExportCSV) RequestID() string { return m.ID }

func (m ExportCSV) MarshalJSON() ([]byte, error) {
	type alias ExportCSV
	return json.Marshal(struct {
		Command string `json:"command"`
		alias
	}{m.Command(), alias(m)})
}

// ExportXLSX asks the host to flatten the displayed rows into a workbook and
// persist it.
type ExportXLSX struct {
	ID      string       `json:"id"`
	Data    []tree.Value `json:"data"`
	Headers []string     `json:"headers"`
}

func (ExportXLSX) Command() string     { return CommandExportXLSX }
func (m ExportXLSX) RequestID() string { return m.ID }

func (m ExportXLSX) MarshalJSON() ([]byte, error) {
	type alias ExportXLSX
	return json.Marshal(struct {
		Command string `json:"command"`
		alias
	}{m.Command(), alias(m)})
}

// Reply is a message sent by the host: documentUpdated, exported or error.
// Pushed documentUpdated messages carry no ID. An error reply may carry the
// current document so the viewer can resynchronize.
type Reply struct {
	Command    string `json:"command"`
	ID         string `json:"id,omitempty"`
	NewContent string `json:"newContent,omitempty"`
	Location   string `json:"location,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Err returns the error carried by an error reply.
func (r Reply) Err() error {
	if r.Command != CommandError {
		return nil
	}
	return errors.New(r.Message)
}

// DocumentUpdated builds the reply announcing new document content.
func DocumentUpdated(id, content string) Reply {
	return Reply{Command: CommandDocumentUpdated, ID: id, NewContent: content}
}

// Exported builds the reply announcing a saved export.
func Exported(id, location string) Reply {
	return Reply{Command: CommandExported, ID: id, Location: location}
}

// ErrorReply builds an error reply. content is the current document, or "".
func ErrorReply(id string, err error, content string) Reply {
	return Reply{Command: CommandError, ID: id, Message: err.Error(), NewContent: content}
}

type envelope struct {
	Command string `json:"command"`
}

// Decode parses a request message.
func Decode(raw []byte) (Request, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	var (
		req Request
		err error
	)
	switch env.Command {
	case CommandUpdateValue:
		var m UpdateValue
		err = json.Unmarshal(raw, &m)
		req = m
	case CommandExportCSV:
		var m ExportCSV
		err = json.Unmarshal(raw, &m)
		req = m
	case CommandExportXLSX:
		var m ExportXLSX
		err = json.Unmarshal(raw, &m)
		req = m
	case "":
		return nil, fmt.Errorf("%w: missing command", ErrMalformedMessage)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, env.Command)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedMessage, env.Command, err)
	}
	return req, nil
}

// DecodeReply parses a reply message.
func DecodeReply(raw []byte) (Reply, error) {
	var r Reply
	if err := json.Unmarshal(raw, &r); err != nil {
		return r, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	switch r.Command {
	case CommandDocumentUpdated, CommandExported, CommandError:
		return r, nil
	}
	return r, fmt.Errorf("%w: %q", ErrUnknownCommand, r.Command)
}
