//go:build nopdfium

package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extract reads the document with the pure-Go pdf reader. Row extraction
// is tried first for its word boundary handling; pages it cannot read
// fall back to grouping positioned characters into lines.
func Extract(ctx context.Context, data []byte) (*Result, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	result := &Result{Metadata: trailerMetadata(reader)}
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		lines := rowLines(page)
		if len(lines) == 0 {
			lines = positionedLines(page)
		}
		result.Pages = append(result.Pages, Page{Number: i, Lines: lines})
	}
	return result, nil
}

func trailerMetadata(reader *pdf.Reader) map[string]string {
	info := reader.Trailer().Key("Info")
	if info.Kind() != pdf.Dict {
		return nil
	}
	meta := map[string]string{}
	for tag, key := range documentInfoKeys {
		v := info.Key(tag)
		if v.Kind() != pdf.String {
			continue
		}
		if s := strings.TrimSpace(v.Text()); s != "" {
			meta[key] = s
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

// rowLines extracts lines via GetTextByRow. An empty string between
// non-empty strings marks a word boundary.
func rowLines(page pdf.Page) []Line {
	rows, err := page.GetTextByRow()
	if err != nil || len(rows) == 0 {
		return nil
	}

	var lines []Line
	for _, row := range rows {
		var lineText strings.Builder
		sizeWeights := map[float64]int{}
		boldWeight, totalWeight := 0, 0
		prevWasEmpty := false
		for _, word := range row.Content {
			s := word.S
			if s == "" {
				prevWasEmpty = true
				continue
			}
			if lineText.Len() > 0 && prevWasEmpty {
				last := lineText.String()
				if last[len(last)-1] != ' ' {
					lineText.WriteString(" ")
				}
			}
			lineText.WriteString(s)
			prevWasEmpty = false

			w := len(s)
			sizeWeights[word.FontSize] += w
			totalWeight += w
			if boldFont(word.Font) {
				boldWeight += w
			}
		}
		text := strings.TrimSpace(lineText.String())
		if text == "" {
			continue
		}
		lines = append(lines, Line{
			Text:     text,
			FontSize: dominantSize(sizeWeights),
			Bold:     totalWeight > 0 && boldWeight*2 > totalWeight,
		})
	}
	return lines
}

type textElement struct {
	x    float64
	y    float64
	text string
	size float64
	font string
}

type textLine struct {
	y        float64
	elements []textElement
}

// positionedLines is the character-level fallback: group by Y proximity,
// then join left to right inserting spaces across gaps.
func positionedLines(page pdf.Page) []Line {
	content := page.Content()
	if len(content.Text) == 0 {
		return nil
	}

	var elements []textElement
	for _, t := range content.Text {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		elements = append(elements, textElement{
			x:    t.X,
			y:    t.Y,
			text: t.S,
			size: t.FontSize,
			font: t.Font,
		})
	}
	if len(elements) == 0 {
		return nil
	}

	yTolerance := 3.0
	if elements[0].size > 0 {
		yTolerance = elements[0].size * 0.3
	}

	var grouped []textLine
	for _, elem := range elements {
		found := false
		for i := range grouped {
			if abs(grouped[i].y-elem.y) < yTolerance {
				grouped[i].elements = append(grouped[i].elements, elem)
				found = true
				break
			}
		}
		if !found {
			grouped = append(grouped, textLine{y: elem.y, elements: []textElement{elem}})
		}
	}

	// Top of page has the highest Y in PDF coordinates.
	sort.Slice(grouped, func(i, j int) bool {
		return grouped[i].y > grouped[j].y
	})

	var lines []Line
	for _, ln := range grouped {
		sort.Slice(ln.elements, func(i, j int) bool {
			return ln.elements[i].x < ln.elements[j].x
		})

		var lineText strings.Builder
		sizeWeights := map[float64]int{}
		boldWeight, totalWeight := 0, 0
		var lastX, lastWidth float64
		first := true
		for _, elem := range ln.elements {
			if !first {
				gap := elem.x - (lastX + lastWidth)
				threshold := elem.size * 0.2
				if threshold < 1.0 {
					threshold = 1.0
				}
				if gap > threshold {
					lineText.WriteString(" ")
				}
			}
			lineText.WriteString(elem.text)
			lastX = elem.x
			lastWidth = float64(len([]rune(elem.text))) * elem.size * 0.55
			first = false

			w := len(elem.text)
			sizeWeights[elem.size] += w
			totalWeight += w
			if boldFont(elem.font) {
				boldWeight += w
			}
		}

		text := strings.TrimSpace(lineText.String())
		if text == "" {
			continue
		}
		lines = append(lines, Line{
			Text:     text,
			FontSize: dominantSize(sizeWeights),
			Bold:     totalWeight > 0 && boldWeight*2 > totalWeight,
		})
	}
	return lines
}

func dominantSize(weights map[float64]int) float64 {
	var best float64
	bestWeight := 0
	for size, w := range weights {
		if w > bestWeight {
			bestWeight = w
			best = size
		}
	}
	return best
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
