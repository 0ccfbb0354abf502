package tagging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/scanpipe/internal/config"
	"github.com/lehigh-university-libraries/scanpipe/internal/prompt"
	"github.com/lehigh-university-libraries/scanpipe/internal/runner"
	"github.com/lehigh-university-libraries/scanpipe/internal/runner/runnertest"
)

type recordingConfirmer struct {
	answer    bool
	questions []string
}

func (r *recordingConfirmer) Confirm(q string) (bool, error) {
	r.questions = append(r.questions, q)
	return r.answer, nil
}

func argsOf(calls []runner.Cmd) [][]string {
	out := make([][]string, len(calls))
	for i, c := range calls {
		out[i] = c.Args
	}
	return out
}

func TestDatabaseExists(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		expected bool
		wantErr  bool
	}{
		{name: "exists", code: 0, expected: true},
		{name: "no database", code: 1, expected: false},
		{name: "other failure", code: 2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := runnertest.New()
			fake.Handle("tmsu", runnertest.Exit(tt.code))

			exists, err := New(fake, config.DefaultSettings()).DatabaseExists(context.Background(), "/work")
			if tt.wantErr {
				var exitErr *runner.ExitError
				assert.True(t, errors.As(err, &exitErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, exists)

			calls := fake.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, []string{"tags"}, calls[0].Args)
			assert.Equal(t, "/work", calls[0].Dir)
		})
	}
}

// missingDatabase answers the probe with "no database" and succeeds otherwise.
func missingDatabase(c runner.Cmd) (runner.Result, error) {
	if c.Args[0] == "tags" {
		return runner.Result{ExitCode: 1}, nil
	}
	return runner.Result{}, nil
}

func TestEnsureDatabase_AutoConfirmCreatesSilently(t *testing.T) {
	fake := runnertest.New()
	fake.Handle("tmsu", missingDatabase)
	confirmer := &recordingConfirmer{}

	err := New(fake, config.DefaultSettings()).EnsureDatabase(context.Background(), "/work", true, confirmer)
	require.NoError(t, err)

	assert.Empty(t, confirmer.questions)
	assert.Equal(t, [][]string{{"tags"}, {"init"}}, argsOf(fake.Calls()))
}

func TestEnsureDatabase_PromptAccepted(t *testing.T) {
	fake := runnertest.New()
	fake.Handle("tmsu", missingDatabase)
	confirmer := &recordingConfirmer{answer: true}

	err := New(fake, config.DefaultSettings()).EnsureDatabase(context.Background(), "/work", false, confirmer)
	require.NoError(t, err)

	assert.Len(t, confirmer.questions, 1)
	assert.Equal(t, [][]string{{"tags"}, {"init"}}, argsOf(fake.Calls()))
}

func TestEnsureDatabase_PromptDeclined(t *testing.T) {
	fake := runnertest.New()
	fake.Handle("tmsu", missingDatabase)

	err := New(fake, config.DefaultSettings()).EnsureDatabase(context.Background(), "/work", false, prompt.Always(false))

	assert.ErrorIs(t, err, prompt.ErrDeclined)
	assert.Equal(t, [][]string{{"tags"}}, argsOf(fake.Calls()))
}

func TestEnsureDatabase_Existing(t *testing.T) {
	fake := runnertest.New()
	confirmer := &recordingConfirmer{}

	err := New(fake, config.DefaultSettings()).EnsureDatabase(context.Background(), "/work", false, confirmer)
	require.NoError(t, err)

	assert.Empty(t, confirmer.questions)
	assert.Equal(t, [][]string{{"tags"}}, argsOf(fake.Calls()))
}

func TestTag(t *testing.T) {
	fake := runnertest.New()

	err := New(fake, config.DefaultSettings()).Tag(context.Background(), "/work", "/work/invoice.pdf", []string{"invoice", "2024"})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"tag", "/work/invoice.pdf", "invoice", "2024"}}, argsOf(fake.Calls()))
}
