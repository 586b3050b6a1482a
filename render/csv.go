package main

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/rusni-pyzda/twitter-cascades/cascade"
)

// header follows the column names graph tools and the exposure statistics
// expect: Source/Target form a directed edge list, sawl is the exposure
// count.
var header = []string{"Source", "Target", "time", "ref", "refu", "nr", "retweet", "saw", "sawl"}

type edgeWriter struct {
	w *csv.Writer
}

func newEdgeWriter(w io.Writer) (*edgeWriter, error) {
	ew := &edgeWriter{w: csv.NewWriter(w)}
	if err := ew.w.Write(header); err != nil {
		return nil, err
	}
	return ew, nil
}

func (ew *edgeWriter) Write(e cascade.Edge) error {
	seen := e.Seen
	if seen == nil {
		seen = []cascade.User{}
	}
	saw, err := json.Marshal(seen)
	if err != nil {
		return err
	}
	return ew.w.Write([]string{
		string(e.Source),
		string(e.Target),
		e.Time.UTC().Format(time.RFC3339Nano),
		e.ContentID,
		string(e.RefUser),
		strconv.Itoa(e.CascadeID),
		e.RetweetID,
		string(saw),
		strconv.Itoa(len(e.Seen)),
	})
}

func (ew *edgeWriter) Flush() error {
	ew.w.Flush()
	return ew.w.Error()
}
