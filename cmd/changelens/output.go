package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"changelens/internal/envelope"
	"changelens/internal/errors"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// errReported marks a failure that was already written as a JSON envelope
var errReported = stderrors.New("error already reported")

var stdout io.Writer = os.Stdout

func currentFormat() (OutputFormat, error) {
	switch f := OutputFormat(formatFlag); f {
	case FormatJSON, FormatHuman:
		return f, nil
	}
	return "", errors.NewInvalidParameterError("format", fmt.Sprintf("%q (valid: json, human)", formatFlag))
}

// emit writes a successful result: the full envelope for --format json, or
// the human rendering otherwise.
func emit(data interface{}, prov *envelope.Provenance, human func(io.Writer) error) error {
	format, err := currentFormat()
	if err != nil {
		return err
	}
	if format == FormatJSON {
		return writeJSON(stdout, envelope.New().Data(data).Provenance(prov).Build())
	}
	return human(stdout)
}

// fail reports err. In JSON mode the failure envelope goes to stdout so
// scripted callers always get a parseable document.
func fail(err error) error {
	if OutputFormat(formatFlag) != FormatJSON {
		return err
	}
	if werr := writeJSON(stdout, envelope.Failure(err)); werr != nil {
		return err
	}
	return errReported
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// emitOperational writes a result that reflects no repository state
func emitOperational(data interface{}, human func() string) error {
	format, err := currentFormat()
	if err != nil {
		return err
	}
	if format == FormatJSON {
		return writeJSON(stdout, envelope.Operational(data))
	}
	_, err = io.WriteString(stdout, human())
	return err
}
