package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	postings []string
	imports  [][3]int
}

func (r *recordingObserver) ObservePosting(kind, op, outcome string) {
	r.postings = append(r.postings, kind+"/"+op+"/"+outcome)
}

func (r *recordingObserver) ObserveImport(created, skipped, failed int) {
	r.imports = append(r.imports, [3]int{created, skipped, failed})
}

func TestObserversFanOut(t *testing.T) {
	a, b := &recordingObserver{}, &recordingObserver{}
	obs := Observers{}
	obs.Postings = append(obs.Postings, a, b, nil)
	obs.Imports = append(obs.Imports, b)

	obs.ObservePosting("sale", "post", "success")
	obs.ObserveImport(3, 1, 0)

	require.Equal(t, []string{"sale/post/success"}, a.postings)
	require.Equal(t, []string{"sale/post/success"}, b.postings)
	require.Empty(t, a.imports)
	require.Equal(t, [][3]int{{3, 1, 0}}, b.imports)
}
