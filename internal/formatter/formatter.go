// package formatter renders sync plans and run summaries in various formats (CSV, Markdown, JSON, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/ytsync/internal/models"
	"github.com/desertthunder/ytsync/internal/shared"
)

// Format names an output format.
type Format string

const (
	Text     Format = "text"
	Markdown Format = "markdown"
	CSV      Format = "csv"
	JSON     Format = "json"
)

// Formats lists the supported output formats.
var Formats = []Format{Text, Markdown, CSV, JSON}

// ParseFormat accepts a format name or a common alias ("md", "txt").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return Text, nil
	case "markdown", "md":
		return Markdown, nil
	case "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, s)
	}
}

// Row is one line of a rendered plan.
type Row struct {
	Action        string  `json:"action"` // ADD or SKIP
	SourceTrackID string  `json:"source_track_id"`
	Title         string  `json:"title"`
	Artists       string  `json:"artists"`
	DestinationID string  `json:"destination_id,omitempty"`
	Outcome       string  `json:"outcome,omitempty"`
	Confidence    float64 `json:"confidence,omitempty"`
	Strategy      string  `json:"strategy,omitempty"`
	Reason        string  `json:"reason,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// Rows flattens a plan into additions followed by skips, each in source order.
func Rows(plan *models.SyncPlan) []Row {
	rows := make([]Row, 0, len(plan.ToAdd)+len(plan.Skipped))
	for _, a := range plan.ToAdd {
		rows = append(rows, Row{
			Action:        "ADD",
			SourceTrackID: a.Track.ID,
			Title:         a.Track.Title,
			Artists:       a.Track.ArtistLine(),
			DestinationID: a.DestinationTrackID,
			Outcome:       string(a.Match.Outcome),
			Confidence:    a.Match.Confidence,
			Strategy:      a.Match.Strategy,
		})
	}
	for _, s := range plan.Skipped {
		row := Row{
			Action:        "SKIP",
			SourceTrackID: s.Track.ID,
			Title:         s.Track.Title,
			Artists:       s.Track.ArtistLine(),
			Reason:        string(s.Reason),
		}
		if s.Match != nil {
			row.DestinationID = s.Match.DestinationTrackID
			row.Outcome = string(s.Match.Outcome)
			row.Confidence = s.Match.Confidence
			row.Strategy = s.Match.Strategy
		}
		if s.Err != nil {
			row.Error = s.Err.Error()
		}
		rows = append(rows, row)
	}
	return rows
}

// PlanToCSV renders a plan with one row per source track.
func PlanToCSV(plan *models.SyncPlan) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Action", "SourceTrackID", "Title", "Artists", "DestinationID", "Outcome", "Confidence", "Strategy", "Reason", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range Rows(plan) {
		confidence := ""
		if r.Outcome != "" && r.Outcome != string(models.OutcomeNotFound) {
			confidence = strconv.FormatFloat(r.Confidence, 'f', 4, 64)
		}
		record := []string{r.Action, r.SourceTrackID, r.Title, r.Artists, r.DestinationID, r.Outcome, confidence, r.Strategy, r.Reason, r.Error}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// PlanToMarkdown renders a plan as a titled document with a stats table.
func PlanToMarkdown(title string, plan *models.SyncPlan) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Source**: `%s`\n", plan.SourcePlaylistID)
	fmt.Fprintf(&buf, "**Destination**: `%s`\n\n", plan.DestinationPlaylistID)

	buf.WriteString("## Summary\n\n| Outcome | Count |\n| --- | --- |\n")
	for _, kv := range statLines(plan.Stats) {
		fmt.Fprintf(&buf, "| %s | %d |\n", kv.label, kv.value)
	}

	if len(plan.ToAdd) > 0 {
		buf.WriteString("\n## To Add\n\n")
		for i, a := range plan.ToAdd {
			fmt.Fprintf(&buf, "%d. %s - %s → `%s` (%s, %.2f)\n",
				i+1, a.Track.ArtistLine(), a.Track.Title, a.DestinationTrackID, a.Match.Outcome, a.Match.Confidence)
		}
	}

	if len(plan.Skipped) > 0 {
		buf.WriteString("\n## Skipped\n\n")
		for _, s := range plan.Skipped {
			fmt.Fprintf(&buf, "- %s - %s: %s", s.Track.ArtistLine(), s.Track.Title, s.Reason)
			if s.Err != nil {
				fmt.Fprintf(&buf, " (%v)", s.Err)
			}
			buf.WriteString("\n")
		}
	}

	return buf.Bytes(), nil
}

// PlanToText renders a plan as plain text.
func PlanToText(plan *models.SyncPlan) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Source: %s\n", plan.SourcePlaylistID)
	fmt.Fprintf(&buf, "Destination: %s\n", plan.DestinationPlaylistID)
	fmt.Fprintf(&buf, "To add: %d, skipped: %d\n\n", len(plan.ToAdd), len(plan.Skipped))

	for i, a := range plan.ToAdd {
		fmt.Fprintf(&buf, "%d. + %s - %s [%s %.2f]\n", i+1, a.Track.PrimaryArtist(), a.Track.Title, a.Match.Outcome, a.Match.Confidence)
	}
	for _, s := range plan.Skipped {
		fmt.Fprintf(&buf, "   - %s - %s (%s)\n", s.Track.PrimaryArtist(), s.Track.Title, s.Reason)
	}

	return buf.Bytes(), nil
}

type planDocument struct {
	SourcePlaylistID      string          `json:"source_playlist_id"`
	DestinationPlaylistID string          `json:"destination_playlist_id"`
	Stats                 models.RunStats `json:"stats"`
	Rows                  []Row           `json:"rows"`
}

// PlanToJSON renders a plan as indented JSON.
func PlanToJSON(plan *models.SyncPlan) ([]byte, error) {
	doc := planDocument{
		SourcePlaylistID:      plan.SourcePlaylistID,
		DestinationPlaylistID: plan.DestinationPlaylistID,
		Stats:                 plan.Stats,
		Rows:                  Rows(plan),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode plan: %w", err)
	}
	return append(data, '\n'), nil
}

// RenderPlan renders plan in format. title is used by Markdown only.
func RenderPlan(format Format, title string, plan *models.SyncPlan) ([]byte, error) {
	switch format {
	case Text:
		return PlanToText(plan)
	case Markdown:
		return PlanToMarkdown(title, plan)
	case CSV:
		return PlanToCSV(plan)
	case JSON:
		return PlanToJSON(plan)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
}

// WritePlan renders plan to w.
func WritePlan(w io.Writer, format Format, title string, plan *models.SyncPlan) error {
	data, err := RenderPlan(format, title, plan)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}
	return nil
}

// WritePlanFile renders plan to path.
func WritePlanFile(path string, format Format, title string, plan *models.SyncPlan) error {
	data, err := RenderPlan(format, title, plan)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write plan file: %w", err)
	}
	return nil
}

type statLine struct {
	label string
	value int
}

func statLines(s models.RunStats) []statLine {
	return []statLine{
		{"Total", s.Total},
		{"Cached", s.MatchedCached},
		{"Exact", s.MatchedExact},
		{"Fuzzy", s.MatchedFuzzy},
		{"Not found", s.NotFound},
		{"Planned", s.Planned},
		{"Added", s.Added},
		{"Add failed", s.AddFailed},
		{"Already present", s.SkippedAlreadyPresent},
		{"Already queued", s.SkippedAlreadyQueued},
		{"Malformed", s.Malformed},
		{"Search failed", s.SearchFailed},
	}
}
