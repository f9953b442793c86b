package docstore

import (
	"context"
	"encoding/binary"
	"math"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"gonum.org/v1/gonum/floats"
)

// Search returns up to limit chunks most similar to query. An empty ticker searches the whole
// corpus.
func (s *Store) Search(ctx context.Context, query string, limit int, ticker string) ([]*Hit, error) {
	if limit <= 0 {
		return nil, nil
	}

	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query")
	}
	if len(vecs) != 1 {
		return nil, goerr.New("embedding count mismatch", goerr.V("actual", len(vecs)))
	}
	q := vecs[0]

	stmt := "SELECT id, ticker, doc_type, filename, chunk_index, content, embedding FROM doc_chunks"
	var args []any
	if ticker != "" {
		stmt += " WHERE ticker = ?"
		args = append(args, normalizeTicker(ticker))
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query doc_chunks")
	}
	defer rows.Close()

	var hits []*Hit
	for rows.Next() {
		var h Hit
		var blob []byte
		if err := rows.Scan(&h.ID, &h.Ticker, &h.DocType, &h.Filename, &h.Index, &h.Content, &blob); err != nil {
			return nil, goerr.Wrap(err, "failed to scan doc_chunks")
		}
		vec := decodeVector(blob)
		if len(vec) != len(q) {
			continue
		}
		h.Score = cosine(q, vec)
		hits = append(hits, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate doc_chunks")
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func cosine(a, b []float64) float64 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

// encodeVector stores a vector as little-endian float32, the layout libSQL uses for F32_BLOB.
func encodeVector(v []float64) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(f)))
	}
	return buf
}

func decodeVector(b []byte) []float64 {
	v := make([]float64, len(b)/4)
	for i := range v {
		v[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:])))
	}
	return v
}
