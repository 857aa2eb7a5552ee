package clientcli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/sagarc03/shelf"
)

// Formatter formats results for output.
type Formatter interface {
	FormatItems(w io.Writer, items []shelf.Item) error
	FormatItem(w io.Writer, item shelf.Item) error
	FormatDeleted(w io.Writer, result shelf.DeleteResult) error
	FormatHealth(w io.Writer, status shelf.HealthStatus) error
	FormatError(w io.Writer, err error) error
	FormatProfileList(w io.Writer, profiles []Profile, defaultName string) error
	FormatProfileShow(w io.Writer, profile Profile, isDefault bool, signedInAs string) error
}

// NewFormatter returns the appropriate formatter based on flags.
func NewFormatter(jsonOutput, quiet bool) Formatter {
	if jsonOutput {
		return &JSONFormatter{}
	}
	return &HumanFormatter{Quiet: quiet}
}

// HumanFormatter outputs human-readable text.
type HumanFormatter struct {
	Quiet bool
}

const timeLayout = "2006-01-02 15:04:05"

// FormatItems prints a table of items.
func (f *HumanFormatter) FormatItems(w io.Writer, items []shelf.Item) error {
	if len(items) == 0 {
		if !f.Quiet {
			_, _ = fmt.Fprintln(w, "No items found")
		}
		return nil
	}

	if f.Quiet {
		for i := range items {
			_, _ = fmt.Fprintln(w, items[i].ID)
		}
		return nil
	}

	const idWidth = 36
	nameWidth := 4 // "NAME"
	for i := range items {
		nameWidth = max(nameWidth, utf8.RuneCountInString(items[i].Name))
	}
	nameWidth = min(nameWidth, 40)

	_, _ = fmt.Fprintf(w, "%-*s  %-*s  %s\n", idWidth, "ID", nameWidth, "NAME", "UPDATED")
	_, _ = fmt.Fprintf(w, "%s  %s  %s\n", strings.Repeat("-", idWidth), strings.Repeat("-", nameWidth), strings.Repeat("-", 19))

	for i := range items {
		item := &items[i]
		_, _ = fmt.Fprintf(w, "%-*s  %-*s  %s\n",
			idWidth, item.ID,
			nameWidth, truncate(item.Name, nameWidth),
			item.UpdatedAt.Format(timeLayout),
		)
	}

	_, _ = fmt.Fprintf(w, "\n%d item(s)\n", len(items))
	return nil
}

// FormatItem prints every field of one item.
func (f *HumanFormatter) FormatItem(w io.Writer, item shelf.Item) error {
	if f.Quiet {
		_, _ = fmt.Fprintln(w, item.ID)
		return nil
	}
	_, _ = fmt.Fprintf(w, "ID:          %s\n", item.ID)
	_, _ = fmt.Fprintf(w, "Name:        %s\n", item.Name)
	_, _ = fmt.Fprintf(w, "Description: %s\n", item.Description)
	_, _ = fmt.Fprintf(w, "Owner:       %s\n", item.OwnerID)
	_, _ = fmt.Fprintf(w, "Created:     %s\n", item.CreatedAt.Format(timeLayout))
	_, _ = fmt.Fprintf(w, "Updated:     %s\n", item.UpdatedAt.Format(timeLayout))
	return nil
}

// FormatDeleted confirms a deletion.
func (f *HumanFormatter) FormatDeleted(w io.Writer, result shelf.DeleteResult) error {
	if !f.Quiet {
		_, _ = fmt.Fprintf(w, "Deleted: %s\n", result.ID)
	}
	return nil
}

// FormatHealth prints the server status.
func (f *HumanFormatter) FormatHealth(w io.Writer, status shelf.HealthStatus) error {
	_, _ = fmt.Fprintf(w, "%s (%s)\n", status.Status, status.Timestamp.Format(timeLayout))
	return nil
}

// FormatError formats an error as human-readable text.
func (f *HumanFormatter) FormatError(w io.Writer, err error) error {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	return nil
}

// FormatProfileList formats a list of profiles as human-readable text.
func (f *HumanFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string) error {
	nameWidth, endpointWidth := 4, 8 // "NAME", "ENDPOINT"
	for i := range profiles {
		nameWidth = max(nameWidth, len(profiles[i].Name))
		endpointWidth = max(endpointWidth, len(profiles[i].Endpoint))
	}
	nameWidth = min(nameWidth, 20)
	endpointWidth = min(endpointWidth, 50)

	_, _ = fmt.Fprintf(w, "  %-*s  %-*s  %s\n", nameWidth, "NAME", endpointWidth, "ENDPOINT", "REGION")
	_, _ = fmt.Fprintf(w, "  %s  %s  %s\n", strings.Repeat("-", nameWidth), strings.Repeat("-", endpointWidth), strings.Repeat("-", 12))

	for i := range profiles {
		p := &profiles[i]
		marker := " "
		if p.Name == defaultName {
			marker = "*"
		}

		region := p.Region
		if region == "" {
			region = "-"
		}

		_, _ = fmt.Fprintf(w, "%s %-*s  %-*s  %s\n",
			marker,
			nameWidth, truncate(p.Name, nameWidth),
			endpointWidth, truncate(p.Endpoint, endpointWidth),
			region,
		)
	}

	return nil
}

// FormatProfileShow formats a single profile as human-readable text.
func (f *HumanFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault bool, signedInAs string) error {
	_, _ = fmt.Fprintf(w, "Name:      %s", profile.Name)
	if isDefault {
		_, _ = fmt.Fprintf(w, " (default)")
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Endpoint:  %s\n", profile.Endpoint)
	_, _ = fmt.Fprintf(w, "Region:    %s\n", orNotSet(profile.Region))
	_, _ = fmt.Fprintf(w, "Client ID: %s\n", orNotSet(profile.ClientID))
	_, _ = fmt.Fprintf(w, "Signed in: %s\n", orNotSet(signedInAs))
	return nil
}

// JSONFormatter outputs JSON.
type JSONFormatter struct{}

// FormatItems formats items as a JSON array.
func (f *JSONFormatter) FormatItems(w io.Writer, items []shelf.Item) error {
	if items == nil {
		items = []shelf.Item{}
	}
	return writeJSON(w, items)
}

// FormatItem formats one item as JSON.
func (f *JSONFormatter) FormatItem(w io.Writer, item shelf.Item) error {
	return writeJSON(w, item)
}

// FormatDeleted formats a delete result as JSON.
func (f *JSONFormatter) FormatDeleted(w io.Writer, result shelf.DeleteResult) error {
	return writeJSON(w, result)
}

// FormatHealth formats the server status as JSON.
func (f *JSONFormatter) FormatHealth(w io.Writer, status shelf.HealthStatus) error {
	return writeJSON(w, status)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	output := struct {
		Error  string `json:"error"`
		Status int    `json:"status,omitempty"`
	}{
		Error: err.Error(),
	}
	if apiErr, ok := err.(*APIError); ok { //nolint:errorlint // only the top-level error carries the status
		output.Error = apiErr.Message
		output.Status = apiErr.StatusCode
	}
	return writeJSON(w, output)
}

// FormatProfileList formats a list of profiles as JSON.
func (f *JSONFormatter) FormatProfileList(w io.Writer, profiles []Profile, defaultName string) error {
	out := make([]Profile, len(profiles))
	for i := range profiles {
		out[i] = profiles[i]
		out[i].Default = profiles[i].Name == defaultName
	}

	return writeJSON(w, struct {
		Profiles []Profile `json:"profiles"`
	}{Profiles: out})
}

// FormatProfileShow formats a single profile as JSON.
func (f *JSONFormatter) FormatProfileShow(w io.Writer, profile Profile, isDefault bool, signedInAs string) error {
	return writeJSON(w, struct {
		Name       string `json:"name"`
		Endpoint   string `json:"endpoint"`
		Region     string `json:"region,omitempty"`
		ClientID   string `json:"client_id,omitempty"`
		Default    bool   `json:"default"`
		SignedInAs string `json:"signed_in_as,omitempty"`
	}{
		Name:       profile.Name,
		Endpoint:   profile.Endpoint,
		Region:     profile.Region,
		ClientID:   profile.ClientID,
		Default:    isDefault,
		SignedInAs: signedInAs,
	})
}

// writeJSON writes a value as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// truncate shortens s to width runes, marking the cut with "...".
func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	return string(r[:width-3]) + "..."
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
