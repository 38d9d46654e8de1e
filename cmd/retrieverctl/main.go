// Command retrieverctl builds and queries a local index from the command
// line: ingest a corpus into a saved index, then ask questions against it.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/kenolab/retriever/internal/corpus"
	"github.com/kenolab/retriever/internal/reranker"
	"github.com/kenolab/retriever/internal/retrieval/tfidf"
	"github.com/kenolab/retriever/internal/service"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "ingest":
		err = runIngest(os.Args[2:])
	case "ask":
		err = runAsk(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  retrieverctl ingest -docs FILE -index FILE [-jsonl] [-dedupe] [-max-vocab N]
  retrieverctl ingest -database-url URL -table NAME -index FILE [-dedupe]
  retrieverctl ask -index FILE -query TEXT [-top-k N]`)
}

func runIngest(args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	docsPath := fs.String("docs", "", "corpus file, one document per line")
	jsonl := fs.Bool("jsonl", false, "corpus file holds JSONL document records")
	indexPath := fs.String("index", "", "path to save the index")
	maxVocab := fs.Int("max-vocab", tfidf.DefaultMaxVocab, "vocabulary cap")
	dedupe := fs.Bool("dedupe", false, "drop documents with duplicate text")
	databaseURL := fs.String("database-url", "", "load the corpus from Postgres instead of a file")
	table := fs.String("table", "documents", "corpus table name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *indexPath == "" {
		return fmt.Errorf("-index is required")
	}

	ctx := context.Background()

	var src corpus.Source
	switch {
	case *databaseURL != "":
		pg, err := corpus.NewPostgresSource(ctx, *databaseURL, *table)
		if err != nil {
			return err
		}
		defer pg.Close()
		src = pg
	case *docsPath != "" && *jsonl:
		src = corpus.JSONLSource{Path: *docsPath}
	case *docsPath != "":
		src = corpus.LineSource{Path: *docsPath}
	default:
		return fmt.Errorf("either -docs or -database-url is required")
	}

	docs, err := src.Load(ctx)
	if err != nil {
		return err
	}
	if *dedupe {
		docs = corpus.DedupeByHash(docs)
	}

	ix := tfidf.New(tfidf.WithMaxVocab(*maxVocab))
	if err := ix.Ingest(ctx, docs); err != nil {
		return err
	}
	if err := ix.Save(*indexPath); err != nil {
		return err
	}
	fmt.Printf("indexed docs: %d -> %s\n", len(docs), *indexPath)
	return nil
}

func runAsk(args []string) error {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	indexPath := fs.String("index", "", "path to a saved index")
	query := fs.String("query", "", "query text")
	topK := fs.Int("top-k", service.DefaultTopK, "number of results")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *indexPath == "" || *query == "" {
		return fmt.Errorf("-index and -query are required")
	}

	ix, err := tfidf.Load(*indexPath)
	if err != nil {
		return err
	}
	svc := service.NewQueryService(ix, reranker.NewLengthPenalty())

	results, err := svc.Ask(context.Background(), service.AskRequest{Query: *query, TopK: *topK})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for _, r := range results {
		row := map[string]any{"doc_id": r.ID, "score": r.Score, "meta": r.Meta}
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	return nil
}
