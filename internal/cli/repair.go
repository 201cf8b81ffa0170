package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"

	"github.com/JonMunkholm/inventory/internal/core"
)

// Prompter is the terminal Repairer. It asks for a new value for every
// violated field of a row.
//
// An empty answer leaves the field as it is, which the processor treats
// as an incomplete repair. "skip" or end of input declines the row.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter reads answers from in and writes prompts to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

func (p *Prompter) Repair(ctx context.Context, req core.RepairRequest) (core.RepairResponse, error) {
	fmt.Fprintln(p.out)
	if req.Notice != "" {
		fmt.Fprint(p.out, pterm.Warning.Sprintln(req.Notice))
	}
	fmt.Fprint(p.out, pterm.Error.Sprintf("row %d is invalid (attempt %d)\n", req.Row.Index, req.Attempt))
	for _, v := range req.Violations {
		fmt.Fprintf(p.out, "  %s\n", v.Error())
	}
	fmt.Fprintln(p.out, `enter a new value for each field, or "skip" to leave the row for the failure report`)

	current := core.Draft{Values: req.Values, Attributes: req.Attributes}
	corrected := make(map[string]string, len(req.Fields))
	for _, field := range req.Fields {
		if err := ctx.Err(); err != nil {
			return core.RepairResponse{}, err
		}

		value, _ := current.Lookup(platformOf(req.Violations, field), field)
		fmt.Fprintf(p.out, "%s [%s]: ", field, value)

		line, err := p.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return core.RepairResponse{}, errors.Wrap(err, "read answer")
		}
		answer := strings.TrimSpace(line)
		if errors.Is(err, io.EOF) && answer == "" {
			fmt.Fprintln(p.out)
			return core.RepairResponse{Decline: true}, nil
		}

		switch strings.ToLower(answer) {
		case "skip", "s":
			return core.RepairResponse{Decline: true}, nil
		case "":
			continue
		}
		corrected[field] = answer
	}
	return core.RepairResponse{Corrected: corrected}, nil
}

func platformOf(violations []core.Violation, field string) string {
	for _, v := range violations {
		if v.Field == field {
			return v.Platform
		}
	}
	return ""
}
