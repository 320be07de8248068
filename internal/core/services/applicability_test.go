package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenlabs/warden/internal/core/domain"
)

func alwaysDoc(id string, typ domain.StandardType) domain.StandardDocument {
	return domain.StandardDocument{
		StandardID: id,
		Type:       typ,
		Scope:      domain.ScopeAlways,
		Title:      id,
	}
}

func conditionalDoc(id string, typ domain.StandardType, affected, globs []string) domain.StandardDocument {
	return domain.StandardDocument{
		StandardID:     id,
		Type:           typ,
		Scope:          domain.ScopeConditional,
		Title:          id,
		AffectedFiles:  affected,
		AppliesToGlobs: globs,
	}
}

func changedSet(paths ...string) domain.ChangedFileSet {
	set := domain.ChangedFileSet{}
	for _, p := range paths {
		set.Files = append(set.Files, domain.ChangedFile{Path: p})
	}
	return set
}

func TestFilterApplicable(t *testing.T) {
	t.Run("postmortem included on exact affected file", func(t *testing.T) {
		pm := conditionalDoc("pm-001", domain.StandardTypePostmortem,
			[]string{"services/payment.go"}, nil)
		retrieved := []domain.RetrievedStandard{
			{Document: pm, ChunkText: "Payment outage retro.", Score: 0.9},
		}

		got := FilterApplicable(nil, retrieved, changedSet("services/payment.go"))
		require.Len(t, got, 1)
		assert.Equal(t, "pm-001", got[0].Document.StandardID)
		assert.Equal(t, domain.ReasonAffectedFileExact, got[0].Reason)
		assert.Equal(t, "Payment outage retro.", got[0].ChunkText)
	})

	t.Run("always-scope survives a retrieval outage", func(t *testing.T) {
		always := []domain.StandardDocument{
			alwaysDoc("corp-001", domain.StandardTypeCorporate),
			alwaysDoc("team-001", domain.StandardTypeTeam),
		}

		got := FilterApplicable(always, nil, changedSet("any.go"))
		require.Len(t, got, 2)
		for _, inc := range got {
			assert.Equal(t, domain.ReasonAlways, inc.Reason)
		}
	})

	t.Run("always-scope is never similarity gated", func(t *testing.T) {
		always := []domain.StandardDocument{alwaysDoc("corp-001", domain.StandardTypeCorporate)}
		// Retrieval returned nothing relevant; the mandatory rule stays.
		got := FilterApplicable(always, []domain.RetrievedStandard{}, changedSet("x.go"))
		require.Len(t, got, 1)
		assert.Equal(t, "corp-001", got[0].Document.StandardID)
	})

	t.Run("conditional without a path match is excluded", func(t *testing.T) {
		pm := conditionalDoc("pm-002", domain.StandardTypePostmortem,
			[]string{"services/payment.go"}, []string{"internal/billing/**"})
		retrieved := []domain.RetrievedStandard{{Document: pm, Score: 0.99}}

		got := FilterApplicable(nil, retrieved, changedSet("cmd/main.go"))
		assert.Empty(t, got)
	})

	t.Run("glob match includes despite empty affected files", func(t *testing.T) {
		fh := conditionalDoc("fh-001", domain.StandardTypeFileHist,
			nil, []string{"migrations/**/*.sql"})
		retrieved := []domain.RetrievedStandard{{Document: fh, Score: 0.5}}

		got := FilterApplicable(nil, retrieved, changedSet("migrations/2026/003_add.sql"))
		require.Len(t, got, 1)
		assert.Equal(t, domain.ReasonGlobMatch, got[0].Reason)
	})

	t.Run("dedupe keeps the highest scoring chunk", func(t *testing.T) {
		pm := conditionalDoc("pm-003", domain.StandardTypePostmortem,
			[]string{"a.go"}, nil)
		retrieved := []domain.RetrievedStandard{
			{Document: pm, ChunkText: "low", Score: 0.2},
			{Document: pm, ChunkText: "high", Score: 0.8},
		}

		got := FilterApplicable(nil, retrieved, changedSet("a.go"))
		require.Len(t, got, 1)
		assert.Equal(t, "high", got[0].ChunkText)
		assert.Equal(t, 0.8, got[0].Score)
	})

	t.Run("retrieved always-scope chunk attaches to the catalog entry", func(t *testing.T) {
		corp := alwaysDoc("corp-002", domain.StandardTypeCorporate)
		retrieved := []domain.RetrievedStandard{
			{Document: corp, ChunkText: "matched excerpt", Score: 0.7},
		}

		got := FilterApplicable([]domain.StandardDocument{corp}, retrieved, changedSet("x.go"))
		require.Len(t, got, 1)
		assert.Equal(t, domain.ReasonAlways, got[0].Reason)
		assert.Equal(t, "matched excerpt", got[0].ChunkText)
	})

	t.Run("always entries come out in standard_id order", func(t *testing.T) {
		always := []domain.StandardDocument{
			alwaysDoc("z-900", domain.StandardTypeRepository),
			alwaysDoc("a-100", domain.StandardTypeCorporate),
		}
		got := FilterApplicable(always, nil, changedSet())
		require.Len(t, got, 2)
		assert.Equal(t, "a-100", got[0].Document.StandardID)
		assert.Equal(t, "z-900", got[1].Document.StandardID)
	})
}
