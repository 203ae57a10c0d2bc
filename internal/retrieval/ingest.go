package retrieval

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

const maxChunkChars = 1200

// IngestDir indexes every .txt and .md file under dir, one document per
// paragraph chunk. Missing directory is not an error: there is simply
// nothing to index yet.
func IngestDir(ctx context.Context, source *ChromemSource, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read knowledge dir: %w", err)
	}

	indexed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return indexed, fmt.Errorf("read %s: %w", entry.Name(), err)
		}

		for i, chunk := range chunks(string(data)) {
			doc := Document{
				ID:       fmt.Sprintf("%s#%d", entry.Name(), i),
				Text:     chunk,
				SourceID: entry.Name(),
			}
			if err := source.Index(ctx, doc); err != nil {
				return indexed, err
			}
			indexed++
		}
	}

	if indexed > 0 {
		log.Printf("[retrieval] indexed %d chunks from %s", indexed, dir)
	}
	return indexed, nil
}

// chunks splits text on blank lines, packing paragraphs up to maxChunkChars.
// A single oversized paragraph becomes its own chunk rather than being split.
func chunks(text string) []string {
	paras := strings.Split(text, "\n\n")
	var out []string
	var cur strings.Builder

	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}

	for _, p := range paras {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if cur.Len() > 0 && cur.Len()+len(p) > maxChunkChars {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(p)
	}
	flush()
	return out
}
