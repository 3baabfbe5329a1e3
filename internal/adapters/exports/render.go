package exports

import (
	"clinicadmin/pkg/domain"
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"time"
)

type renderer struct {
	contentType string
	render      func(w io.Writer, entity domain.EntityType, docs []domain.Document) error
}

var renderers = map[Format]renderer{
	FormatCSV:  {contentType: "text/csv", render: renderCSV},
	FormatJSON: {contentType: "application/json", render: renderJSON},
}

// columns returns id, the union of attribute names sorted, then the timestamps.
func columns(docs []domain.Document) []string {
	seen := map[string]struct{}{}
	var attrs []string
	for _, doc := range docs {
		for k := range doc.Attributes {
			if k == "id" || k == "created_at" || k == "updated_at" {
				continue
			}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			attrs = append(attrs, k)
		}
	}
	sort.Strings(attrs)
	cols := append([]string{"id"}, attrs...)
	return append(cols, "created_at", "updated_at")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func renderCSV(w io.Writer, _ domain.EntityType, docs []domain.Document) error {
	cols := columns(docs)
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	for _, doc := range docs {
		row := make([]string, len(cols))
		for i, col := range cols {
			switch col {
			case "id":
				row[i] = strconv.FormatInt(doc.ID, 10)
			case "created_at":
				row[i] = formatTime(doc.CreatedAt)
			case "updated_at":
				row[i] = formatTime(doc.UpdatedAt)
			default:
				row[i] = doc.Text(col)
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func renderJSON(w io.Writer, entity domain.EntityType, docs []domain.Document) error {
	if docs == nil {
		docs = []domain.Document{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"entity": entity, "data": docs})
}
