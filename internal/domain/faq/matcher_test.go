package faq

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestCatalog() *Catalog {
	return NewCatalog([]Entry{
		{Question: "what is iron lady", Answer: "A leadership program."},
		{Question: "fees", Answer: "Fees depend on the program."},
		{Question: "Do you offer a certificate", Answer: "Yes, every program is certified."},
		{Question: "mentors", Answer: "Senior entrepreneurs mentor every cohort."},
	})
}

func TestMatchExactKeys(t *testing.T) {
	catalog := newTestCatalog()
	for _, e := range catalog.Entries() {
		answer, ok := Match(e.Question, catalog)
		require.True(t, ok, e.Question)
		require.Equal(t, e.Answer, answer)
	}
}

func TestMatchCaseAndWhitespaceVariants(t *testing.T) {
	catalog := newTestCatalog()
	for _, q := range []string{"WHAT IS IRON LADY", "  what is iron lady\t", "What Is Iron Lady"} {
		answer, ok := catalog.Match(q)
		require.True(t, ok, q)
		require.Equal(t, "A leadership program.", answer)
	}
}

func TestMatchEmptyInput(t *testing.T) {
	catalog := newTestCatalog()
	for _, q := range []string{"", "   ", "\n\t"} {
		_, ok := Match(q, catalog)
		require.False(t, ok)
	}
}

func TestMatchPunctuatedQuestionFallsToSubstring(t *testing.T) {
	catalog := NewCatalog([]Entry{{Question: "what is iron lady", Answer: "A leadership program."}})

	answer, ok := Match("What Is Iron Lady?", catalog)
	require.True(t, ok)
	require.Equal(t, "A leadership program.", answer)
}

func TestMatchShortKeyNeedsSubstring(t *testing.T) {
	catalog := NewCatalog([]Entry{{Question: "fees", Answer: "Fees depend on the program."}})

	answer, ok := Match("the conference fees are high", catalog)
	require.True(t, ok)
	require.Equal(t, "Fees depend on the program.", answer)

	_, ok = Match("how much does it cost", catalog)
	require.False(t, ok)
}

func TestMatchShortMultiWordKeyRequiresVerbatim(t *testing.T) {
	catalog := NewCatalog([]Entry{{Question: "online mode", Answer: "Programs run online."}})

	// every token is present but the two-token key is not a substring
	_, ok := Match("is the mode online", catalog)
	require.False(t, ok)

	answer, ok := Match("do you have an online mode?", catalog)
	require.True(t, ok)
	require.Equal(t, "Programs run online.", answer)
}

func TestMatchAllWordsContainment(t *testing.T) {
	catalog := newTestCatalog()

	answer, ok := Match("is a certificate something you offer? do tell", catalog)
	require.True(t, ok)
	require.Equal(t, "Yes, every program is certified.", answer)
}

func TestMatchTokenContainmentIsNotWordBounded(t *testing.T) {
	catalog := NewCatalog([]Entry{{Question: "get a certificate now", Answer: "Certificates are issued."}})

	answer, ok := Match("you get certificated now as a graduate", catalog)
	require.True(t, ok)
	require.Equal(t, "Certificates are issued.", answer)
}

func TestMatchFirstQualifyingEntryWins(t *testing.T) {
	catalog := NewCatalog([]Entry{
		{Question: "program duration details", Answer: "first"},
		{Question: "duration", Answer: "second"},
	})

	for i := 0; i < 5; i++ {
		answer, ok := Match("tell me the program duration details please", catalog)
		require.True(t, ok)
		require.Equal(t, "first", answer)
	}

	reversed := NewCatalog([]Entry{
		{Question: "duration", Answer: "second"},
		{Question: "program duration details", Answer: "first"},
	})
	answer, ok := Match("tell me the program duration details please", reversed)
	require.True(t, ok)
	require.Equal(t, "second", answer)
}

func TestMatchNoEntryQualifies(t *testing.T) {
	_, ok := Match("tell me a joke", newTestCatalog())
	require.False(t, ok)

	_, ok = Match("anything", NewCatalog(nil))
	require.False(t, ok)

	var nilCatalog *Catalog
	_, ok = Match("anything", nilCatalog)
	require.False(t, ok)
}

func TestMatchConcurrentReaders(t *testing.T) {
	catalog := newTestCatalog()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			answer, ok := catalog.Match("What is Iron Lady?")
			if !ok || answer != "A leadership program." {
				t.Errorf("unexpected match %q %v", answer, ok)
			}
		}()
	}
	wg.Wait()
}
