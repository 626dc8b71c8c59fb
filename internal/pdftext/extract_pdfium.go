//go:build !nopdfium

package pdftext

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/responses"
	"github.com/klippa-app/go-pdfium/webassembly"
)

var (
	pdfiumPool     pdfium.Pool
	pdfiumPoolOnce sync.Once
	pdfiumPoolErr  error
)

func initPdfiumPool() {
	pdfiumPool, pdfiumPoolErr = webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  1,
		MaxTotal: 1,
	})
}

// Extract reads the document through PDFium running in WebAssembly. The
// wasm runtime boots once per process and instances are pooled.
func Extract(ctx context.Context, data []byte) (*Result, error) {
	pdfiumPoolOnce.Do(initPdfiumPool)
	if pdfiumPoolErr != nil {
		return nil, fmt.Errorf("init pdfium: %w", pdfiumPoolErr)
	}

	instance, err := pdfiumPool.GetInstance(30 * time.Second)
	if err != nil {
		return nil, fmt.Errorf("get pdfium instance: %w", err)
	}
	defer instance.Close()

	doc, err := instance.OpenDocument(&requests.OpenDocument{File: &data})
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document})

	pageCount, err := instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{Document: doc.Document})
	if err != nil {
		return nil, fmt.Errorf("get page count: %w", err)
	}

	result := &Result{Metadata: metaText(instance, doc)}
	for i := 0; i < pageCount.PageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Pages = append(result.Pages, Page{
			Number: i + 1,
			Lines:  structuredLines(instance, doc, i),
		})
	}
	return result, nil
}

func metaText(instance pdfium.Pdfium, doc *responses.OpenDocument) map[string]string {
	meta := map[string]string{}
	for tag, key := range documentInfoKeys {
		resp, err := instance.FPDF_GetMetaText(&requests.FPDF_GetMetaText{
			Document: doc.Document,
			Tag:      tag,
		})
		if err != nil {
			continue
		}
		if s := strings.TrimSpace(resp.Value); s != "" {
			meta[key] = s
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

// pdfRect is one text rectangle with its font metadata.
type pdfRect struct {
	text     string
	left     float64
	top      float64
	fontSize float64
	fontName string
}

type rectLine struct {
	rects []pdfRect
	top   float64
	left  float64
}

func structuredLines(instance pdfium.Pdfium, doc *responses.OpenDocument, pageIdx int) []Line {
	structured, err := instance.GetPageTextStructured(&requests.GetPageTextStructured{
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{Document: doc.Document, Index: pageIdx},
		},
		Mode:                   requests.GetPageTextStructuredModeRects,
		CollectFontInformation: true,
	})
	if err != nil || len(structured.Rects) == 0 {
		return plainLines(instance, doc, pageIdx)
	}

	var rects []pdfRect
	for _, r := range structured.Rects {
		if strings.TrimSpace(r.Text) == "" {
			continue
		}
		pr := pdfRect{
			text: r.Text,
			left: r.PointPosition.Left,
			top:  r.PointPosition.Top,
		}
		if r.FontInformation != nil {
			pr.fontSize = r.FontInformation.Size
			pr.fontName = r.FontInformation.Name
		}
		rects = append(rects, pr)
	}
	if len(rects) == 0 {
		return nil
	}
	return groupRectLines(rects)
}

func plainLines(instance pdfium.Pdfium, doc *responses.OpenDocument, pageIdx int) []Line {
	textResp, err := instance.GetPageText(&requests.GetPageText{
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{Document: doc.Document, Index: pageIdx},
		},
	})
	if err != nil {
		return nil
	}
	var lines []Line
	for _, raw := range strings.Split(textResp.Text, "\n") {
		if t := strings.TrimSpace(raw); t != "" {
			lines = append(lines, Line{Text: t})
		}
	}
	return lines
}

// groupRectLines groups rects by vertical position into visual lines. Top
// of page has the highest coordinate, so sorting is descending.
func groupRectLines(rects []pdfRect) []Line {
	sort.Slice(rects, func(i, j int) bool {
		if math.Abs(rects[i].top-rects[j].top) < 2 {
			return rects[i].left < rects[j].left
		}
		return rects[i].top > rects[j].top
	})

	var grouped []rectLine
	for _, r := range rects {
		merged := false
		for i := range grouped {
			if math.Abs(grouped[i].top-r.top) < 3 {
				grouped[i].rects = append(grouped[i].rects, r)
				if r.left < grouped[i].left {
					grouped[i].left = r.left
				}
				merged = true
				break
			}
		}
		if !merged {
			grouped = append(grouped, rectLine{rects: []pdfRect{r}, top: r.top, left: r.left})
		}
	}

	sort.Slice(grouped, func(i, j int) bool {
		return grouped[i].top > grouped[j].top
	})

	var lines []Line
	for _, ln := range grouped {
		sort.Slice(ln.rects, func(a, b int) bool {
			return ln.rects[a].left < ln.rects[b].left
		})
		var sb strings.Builder
		for _, r := range ln.rects {
			sb.WriteString(r.text)
		}
		text := strings.TrimSpace(sb.String())
		if text == "" {
			continue
		}
		size, name := dominantRectFont(ln.rects)
		lines = append(lines, Line{Text: text, FontSize: size, Bold: boldFont(name)})
	}
	return lines
}

// dominantRectFont returns the font covering the most characters in a line.
func dominantRectFont(rects []pdfRect) (float64, string) {
	type fontKey struct {
		size float64
		name string
	}
	counts := map[fontKey]int{}
	for _, r := range rects {
		k := fontKey{size: math.Round(r.fontSize*10) / 10, name: r.fontName}
		counts[k] += len(r.text)
	}
	var bestKey fontKey
	bestCount := 0
	for k, c := range counts {
		if c > bestCount {
			bestCount = c
			bestKey = k
		}
	}
	return bestKey.size, bestKey.name
}
