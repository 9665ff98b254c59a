package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/dutchdrill/internal/content"
	"github.com/conorfennell/dutchdrill/internal/domain"
	"github.com/conorfennell/dutchdrill/internal/session"
)

func drillLibrary() *content.Library {
	lib := content.NewLibrary()
	lib.Add(
		domain.Item{ID: "a", Kind: domain.KindFinalTest, Prompt: "de appel", Answer: "apple", Category: "eten"},
		domain.Item{ID: "b", Kind: domain.KindFinalTest, Prompt: "de kaas", Answer: "cheese", Category: "eten"},
	)
	return lib
}

func TestRunDrillQuits(t *testing.T) {
	m := session.NewManager(drillLibrary(), nil, session.Options{Seed: 1})
	sess, err := m.Open(context.Background(), "anna")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runDrill(context.Background(), sess, domain.KindFinalTest, strings.NewReader("wrong\n:q\n"), &out))

	assert.Contains(t, out.String(), "[1/2]")
	assert.Contains(t, out.String(), "Fout. Expected:")
	assert.Contains(t, out.String(), "1 answered, 0 correct")
}

func TestRunDrillOffersReview(t *testing.T) {
	m := session.NewManager(drillLibrary(), nil, session.Options{Seed: 1})
	sess, err := m.Open(context.Background(), "anna")
	require.NoError(t, err)

	// Two wrong answers, accept review, then stop.
	var out bytes.Buffer
	require.NoError(t, runDrill(context.Background(), sess, domain.KindFinalTest, strings.NewReader("x\nx\ny\n:q\n"), &out))

	assert.Contains(t, out.String(), "Review the items you missed?")
	assert.Contains(t, out.String(), "(review")
	assert.True(t, sess.Overview().Review)
}

func TestRunDrillEndsOnEOF(t *testing.T) {
	m := session.NewManager(drillLibrary(), nil, session.Options{Seed: 1})
	sess, err := m.Open(context.Background(), "anna")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runDrill(context.Background(), sess, domain.KindVocabulary, strings.NewReader(""), &out))
	assert.Contains(t, out.String(), "Done!", "an empty drill finishes at once")
}
