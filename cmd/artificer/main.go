// Copyright 2026 The Artificer Authors
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	artificer "github.com/loferris/artificer-sub004"
)

var version = "dev"

func main() {
	var (
		output          string
		from            string
		to              string
		pretty          bool
		sourceMap       bool
		continueOnError bool
		withMetadata    bool
		keepUnknown     bool
		customMarks     bool
		keepDataURIs    bool
		list            bool
		showVersion     bool
		verbose         bool
	)

	flag.StringVar(&output, "o", "", "Output file (default: stdout)")
	flag.StringVar(&output, "output", "", "Output file (default: stdout)")
	flag.StringVar(&from, "f", "", "Importer name, bypassing auto-detection")
	flag.StringVar(&from, "from", "", "Importer name, bypassing auto-detection")
	flag.StringVar(&to, "t", "json", "Export format")
	flag.StringVar(&to, "to", "json", "Export format")
	flag.BoolVar(&pretty, "pretty", false, "Indent JSON output")
	flag.BoolVar(&sourceMap, "source-map", false, "Include source positions (markdown input only)")
	flag.BoolVar(&continueOnError, "continue-on-error", false, "Skip nodes that fail to convert instead of aborting")
	flag.BoolVar(&withMetadata, "metadata", false, "Include document metadata in the output")
	flag.BoolVar(&keepUnknown, "keep-unknown", false, "Emit unrecognized source blocks instead of dropping them")
	flag.BoolVar(&customMarks, "custom-marks", true, "Render wiki-links, block references, and highlights in source syntax")
	flag.BoolVar(&keepDataURIs, "keep-data-uris", false, "Keep full base64-encoded data URIs")
	flag.BoolVar(&list, "list", false, "List registered importers and exporters")
	flag.BoolVar(&showVersion, "v", false, "Show version")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&verbose, "verbose", false, "Log conversion diagnostics to stderr")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: artificer [flags] [source]\n\n")
		fmt.Fprintf(os.Stderr, "Convert notes and documents to portable text.\n\n")
		fmt.Fprintf(os.Stderr, "Arguments:\n")
		fmt.Fprintf(os.Stderr, "  source    File to convert (reads stdin if omitted)\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("artificer %s\n", version)
		os.Exit(0)
	}

	var opts []artificer.Option
	if verbose {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		opts = append(opts, artificer.WithLogger(logger))
	}
	if keepDataURIs {
		opts = append(opts, artificer.WithKeepDataURIs(true))
	}
	reg := artificer.New(opts...)

	if list {
		fmt.Println("Importers:")
		for _, name := range reg.ListImporters() {
			fmt.Printf("  %s\n", name)
		}
		fmt.Println("Exporters:")
		for _, name := range reg.ListExporters() {
			fmt.Printf("  %s\n", name)
		}
		os.Exit(0)
	}

	var data []byte
	var err error
	if args := flag.Args(); len(args) > 0 {
		data, err = os.ReadFile(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", args[0], err)
			os.Exit(1)
		}
	} else {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
			os.Exit(1)
		}
	}

	ctx := context.Background()

	doc, err := reg.Import(ctx, data, artificer.ImportOptions{
		Importer:              from,
		PreserveUnknownBlocks: keepUnknown,
		PreserveMetadata:      withMetadata,
		IncludeSourceMap:      sourceMap,
		ContinueOnError:       continueOnError,
		OnError: func(err error, blk artificer.BlockContext) {
			fmt.Fprintf(os.Stderr, "Warning: skipping block %d: %v\n", blk.BlockIndex, err)
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	out, err := reg.Export(ctx, doc, artificer.ExportOptions{
		Format:              to,
		PreserveCustomMarks: customMarks,
		IncludeMetadata:     withMetadata,
		PrettyPrint:         pretty,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if output != "" {
		dir := filepath.Dir(output)
		if dir != "." {
			os.MkdirAll(dir, 0o755)
		}
		if writeErr := os.WriteFile(output, []byte(out+"\n"), 0o644); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", writeErr)
			os.Exit(1)
		}
	} else {
		fmt.Print(out)
		fmt.Println()
	}
}
