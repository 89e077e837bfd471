package docsearch

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/poiesic/llmerge/core"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
)

// DefaultChunkSize is the maximum number of characters per PDF text chunk.
const DefaultChunkSize = 1000

// SplitOptions controls how loaded text is cut into documents.
type SplitOptions struct {
	ChunkSize    int
	ChunkOverlap int
}

func (o SplitOptions) splitter() textsplitter.TextSplitter {
	size := o.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	overlap := min(max(o.ChunkOverlap, 0), size-1)
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
	)
}

// LoadPDF extracts the text of every page of a PDF and splits it into
// documents. Each document carries its page number and the file path
// under "source".
func LoadPDF(ctx context.Context, path string, opts SplitOptions) ([]schema.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat pdf: %w", err)
	}

	loader := documentloaders.NewPDF(f, info.Size())
	docs, err := loader.LoadAndSplit(ctx, opts.splitter())
	if err != nil {
		return nil, fmt.Errorf("load pdf %s: %w", path, err)
	}
	for i := range docs {
		if docs[i].Metadata == nil {
			docs[i].Metadata = make(map[string]any)
		}
		docs[i].Metadata["source"] = path
	}
	return docs, nil
}

// DocumentsFromDataset turns each row of ds into one document.
//
// With a single content column the cell text is the document content.
// With several, the content is one "<field>: <value>" line per column.
// All other non-missing fields become metadata keyed by their flat
// rendering, alongside the row index under "row".
func DocumentsFromDataset(ds *core.Dataset, columns []core.Field) ([]schema.Document, error) {
	if len(columns) == 0 {
		return nil, ErrNoContentColumns
	}

	content := make([]int, len(columns))
	isContent := make(map[int]bool, len(columns))
	for i, f := range columns {
		pos, ok := ds.FieldIndex(f)
		if !ok {
			return nil, fmt.Errorf("%w: %s", core.ErrUnknownField, f)
		}
		content[i] = pos
		isContent[pos] = true
	}

	docs := make([]schema.Document, 0, ds.Len())
	for _, row := range ds.Rows {
		var text string
		if len(content) == 1 {
			text = cellText(row.Values[content[0]])
		} else {
			lines := make([]string, len(content))
			for i, pos := range content {
				lines[i] = ds.Fields[pos].String() + ": " + cellText(row.Values[pos])
			}
			text = strings.Join(lines, "\n")
		}

		meta := map[string]any{"row": int64(row.Index)}
		for pos, f := range ds.Fields {
			if isContent[pos] || row.Values[pos] == nil {
				continue
			}
			meta[f.String()] = row.Values[pos]
		}
		docs = append(docs, schema.Document{PageContent: text, Metadata: meta})
	}
	return docs, nil
}

func cellText(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
