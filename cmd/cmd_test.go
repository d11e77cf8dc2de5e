package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/danielolaszy/jiradocs/internal/config"
	"github.com/danielolaszy/jiradocs/internal/docsync"
	"github.com/danielolaszy/jiradocs/internal/fields"
	"github.com/danielolaszy/jiradocs/internal/gdocs"
	"github.com/danielolaszy/jiradocs/internal/jira"
	"github.com/danielolaszy/jiradocs/internal/logging"
	"github.com/danielolaszy/jiradocs/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJira struct {
	mu       sync.Mutex
	issues   map[string]string
	children []string
	cfg      config.JiraConfig
}

func (f *fakeJira) FieldCatalog(ctx context.Context) ([]fields.Field, error) {
	return nil, nil
}

func (f *fakeJira) GetIssue(ctx context.Context, key string, fieldNames ...string) (*jira.Issue, error) {
	f.mu.Lock()
	raw, ok := f.issues[key]
	f.mu.Unlock()
	if !ok {
		return nil, &jira.FetchError{Op: "fetch issue", Key: key, StatusCode: http.StatusNotFound, Err: errors.New("issue does not exist")}
	}

	var issue jira.Issue
	if err := json.Unmarshal([]byte(raw), &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

func (f *fakeJira) GetComments(ctx context.Context, key string) ([]jira.Comment, error) {
	return nil, nil
}

func (f *fakeJira) SearchChildIssues(ctx context.Context, parentKey string, maxResults int) ([]string, error) {
	return f.children, nil
}

type fakeDocs struct {
	created []string
	folders []string
	applied map[string][][]docsync.Operation
	refs    []gdocs.DocRef
}

func (f *fakeDocs) GetStructure(ctx context.Context, docID string) (docsync.Structure, error) {
	return docsync.Structure{}, nil
}

func (f *fakeDocs) ApplyEdits(ctx context.Context, docID string, ops []docsync.Operation) error {
	if f.applied == nil {
		f.applied = map[string][][]docsync.Operation{}
	}
	f.applied[docID] = append(f.applied[docID], ops)
	return nil
}

func (f *fakeDocs) CreateDocument(ctx context.Context, title, folderID string) (gdocs.DocRef, error) {
	f.created = append(f.created, title)
	f.folders = append(f.folders, folderID)
	return gdocs.DocRef{ID: "new-doc", Name: title}, nil
}

func (f *fakeDocs) ListDocuments(ctx context.Context, query string) ([]gdocs.DocRef, error) {
	var result []gdocs.DocRef
	for _, ref := range f.refs {
		if strings.Contains(ref.Name, query) {
			result = append(result, ref)
		}
	}
	return result, nil
}

// insertedText joins every inserted text written to docID.
func (f *fakeDocs) insertedText(docID string) string {
	var sb strings.Builder
	for _, batch := range f.applied[docID] {
		for _, op := range batch {
			if insert, ok := op.(docsync.InsertText); ok {
				sb.WriteString(insert.Text)
			}
		}
	}
	return sb.String()
}

func testIssues() map[string]string {
	return map[string]string{
		"PROJ-1": `{"key":"PROJ-1","fields":{
			"summary":"Checkout flow",
			"issuetype":{"name":"Story"},
			"status":{"name":"In Progress"},
			"labels":["payments"],
			"created":"2026-01-10T09:00:00.000+0000"
		}}`,
		"PROJ-2": `{"key":"PROJ-2","fields":{"summary":"Payment form","issuetype":{"name":"Task"},"status":{"name":"To Do"}}}`,
		"PROJ-100": `{"key":"PROJ-100","fields":{"summary":"Payments revamp","issuetype":{"name":"Epic"},"status":{"name":"Open"}}}`,
	}
}

// setupTest isolates configuration and replaces external services with fakes.
func setupTest(t *testing.T) (*fakeJira, *fakeDocs) {
	t.Helper()

	t.Setenv("JIRA_URL", "https://example.atlassian.net")
	t.Setenv("JIRA_USERNAME", "user@example.com")
	t.Setenv("JIRA_TOKEN", "token")
	t.Setenv("GOOGLE_ACCESS_TOKEN", "ya29.token")
	t.Setenv("GOOGLE_CREDENTIALS_FILE", "")
	t.Setenv("JIRADOCS_TIMEZONE", "UTC")
	t.Setenv("JIRADOCS_BULK_DELAY", "0s")
	t.Setenv("JIRADOCS_LINKSTORE", "file")
	t.Setenv("JIRADOCS_LINKSTORE_PATH", filepath.Join(t.TempDir(), "links.yaml"))

	fj := &fakeJira{issues: testIssues()}
	fd := &fakeDocs{}

	origJira, origDocs := newJiraService, newDocsService
	t.Cleanup(func() {
		newJiraService, newDocsService = origJira, origDocs
	})

	newJiraService = func(cfg config.JiraConfig) (jiraService, error) {
		fj.cfg = cfg
		return fj, nil
	}
	newDocsService = func(ctx context.Context, cfg config.GoogleConfig) (docsService, error) {
		return fd, nil
	}

	return fj, fd
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestExtractJSON(t *testing.T) {
	setupTest(t)

	stdout, _, err := execute(t, "extract", "PROJ-1")
	require.NoError(t, err)

	var rec models.IssueRecord
	require.NoError(t, json.Unmarshal([]byte(stdout), &rec))
	assert.Equal(t, "PROJ-1", rec.Key)
	assert.Equal(t, "Checkout flow", rec.Title)
	assert.Equal(t, models.TypeStory, rec.Type)
	assert.Equal(t, "https://example.atlassian.net/browse/PROJ-1", rec.URL)
	assert.Equal(t, []string{"payments"}, rec.Labels)
}

func TestExtractTextFromPageURL(t *testing.T) {
	fj, _ := setupTest(t)
	t.Setenv("JIRA_URL", "")

	stdout, _, err := execute(t, "extract", "--url", "https://acme.atlassian.net/browse/PROJ-1?focusedCommentId=1", "--format", "text")
	require.NoError(t, err)

	assert.Equal(t, "https://acme.atlassian.net", fj.cfg.URL)
	assert.True(t, strings.HasPrefix(stdout, "ISSUE: PROJ-1: Checkout flow\n"))
	assert.Contains(t, stdout, "URL: https://acme.atlassian.net/browse/PROJ-1\n")
	assert.Contains(t, stdout, "--- DESCRIPTION ---")
}

func TestExtractFromSnapshot(t *testing.T) {
	setupTest(t)

	snapshot := filepath.Join(t.TempDir(), "page.html")
	html := `<html><body><nav><div data-testid="` + "issue.views.issue-base.foundation.breadcrumbs.breadcrumb-current-issue-container" +
		`"><a href="/browse/PROJ-2"><span>PROJ-2</span></a></div></nav></body></html>`
	require.NoError(t, os.WriteFile(snapshot, []byte(html), 0o600))

	stdout, _, err := execute(t, "extract",
		"--url", "https://example.atlassian.net/jira/software/c/projects/PROJ/issues/?filter=all",
		"--html-file", snapshot)
	require.NoError(t, err)
	assert.Contains(t, stdout, `"key": "PROJ-2"`)
}

func TestExtractErrors(t *testing.T) {
	setupTest(t)

	testCases := []struct {
		name     string
		args     []string
		expected string
	}{
		{
			name:     "No key or URL",
			args:     []string{"extract"},
			expected: "an issue key or --url is required",
		},
		{
			name:     "Unsupported format",
			args:     []string{"extract", "PROJ-1", "--format", "xml"},
			expected: "unsupported format",
		},
		{
			name:     "Not an issue page",
			args:     []string{"extract", "--url", "https://example.com/wiki/page"},
			expected: "not a supported Jira issue page",
		},
		{
			name:     "Unknown issue",
			args:     []string{"extract", "PROJ-404"},
			expected: "PROJ-404",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := execute(t, tc.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.expected)
		})
	}
}

func TestSyncRemembersDocument(t *testing.T) {
	_, fd := setupTest(t)

	_, _, err := execute(t, "sync", "PROJ-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no document linked to PROJ-1")

	stdout, _, err := execute(t, "sync", "PROJ-1", "--doc", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Synced PROJ-1 to document doc-1\n", stdout)
	assert.Contains(t, fd.insertedText("doc-1"), "PROJ-1: Checkout flow\nStatus: In Progress\n")

	stdout, _, err = execute(t, "link", "show", "PROJ-1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "PROJ-1 -> doc-1\n")
	assert.NotContains(t, stdout, "never")

	_, _, err = execute(t, "sync", "PROJ-1")
	require.NoError(t, err)
	assert.Len(t, fd.applied["doc-1"], 2)
}

func TestSyncEpicHint(t *testing.T) {
	setupTest(t)

	stdout, _, err := execute(t, "sync", "PROJ-100", "--doc", "doc-1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "PROJ-100 is an epic, run 'jiradocs sync-epic PROJ-100 --doc doc-1'")
}

func TestSyncMissingCredentials(t *testing.T) {
	setupTest(t)

	t.Run("Google", func(t *testing.T) {
		t.Setenv("GOOGLE_ACCESS_TOKEN", "")

		_, _, err := execute(t, "sync", "PROJ-1", "--doc", "doc-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GOOGLE_ACCESS_TOKEN")
	})

	t.Run("Jira", func(t *testing.T) {
		t.Setenv("JIRA_TOKEN", "")

		_, _, err := execute(t, "sync-epic", "PROJ-100", "--doc", "doc-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JIRA_TOKEN")
	})
}

func TestSyncEpic(t *testing.T) {
	fj, fd := setupTest(t)
	fj.children = []string{"PROJ-1", "PROJ-2"}

	stdout, stderr, err := execute(t, "sync-epic", "PROJ-100", "--doc", "doc-1")
	require.NoError(t, err)

	assert.Equal(t, "Synced PROJ-100 and 2 child issues to document doc-1\n", stdout)
	assert.Contains(t, stderr, "[ 17%] PROJ-100 (1/6)")
	assert.Contains(t, stderr, "[100%] PROJ-100 (6/6)")

	require.Len(t, fd.applied["doc-1"], 1)
	text := fd.insertedText("doc-1")
	epic := strings.Index(text, "PROJ-100: Payments revamp")
	first := strings.Index(text, "PROJ-1: Checkout flow")
	second := strings.Index(text, "PROJ-2: Payment form")
	assert.True(t, epic >= 0 && epic < first && first < second, "sections out of order")
}

func TestSyncEpicAbortLeavesDocument(t *testing.T) {
	fj, fd := setupTest(t)
	fj.children = []string{"PROJ-1", "PROJ-404"}

	_, _, err := execute(t, "sync-epic", "PROJ-100", "--doc", "doc-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bulk sync aborted at PROJ-404 (item 3)")
	assert.Empty(t, fd.applied)

	stdout, _, err := execute(t, "link", "show", "PROJ-100")
	require.NoError(t, err)
	assert.Equal(t, "PROJ-100 is not linked to a document\n", stdout)
}

func TestDocsCreateAndList(t *testing.T) {
	_, fd := setupTest(t)
	fd.refs = []gdocs.DocRef{
		{ID: "d1", Name: "Payments notes"},
		{ID: "d2", Name: "Roadmap"},
	}

	stdout, _, err := execute(t, "docs", "create", "Payments notes", "--folder", "folder-1", "--link", "PROJ-1")
	require.NoError(t, err)
	assert.Equal(t, "Created document \"Payments notes\" (new-doc)\n", stdout)
	assert.Equal(t, []string{"folder-1"}, fd.folders)

	stdout, _, err = execute(t, "link", "show", "PROJ-1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "PROJ-1 -> new-doc (Payments notes)\n")
	assert.Contains(t, stdout, "Last synced: never\n")

	stdout, _, err = execute(t, "docs", "list", "--query", "Payments")
	require.NoError(t, err)
	assert.Equal(t, "d1\tPayments notes\n", stdout)

	stdout, _, err = execute(t, "docs", "list", "--query", "Missing")
	require.NoError(t, err)
	assert.Equal(t, "No documents found\n", stdout)
}

func TestLinkSetAndClear(t *testing.T) {
	setupTest(t)

	stdout, _, err := execute(t, "link", "set", "PROJ-2", "doc-7", "--name", "Sprint notes")
	require.NoError(t, err)
	assert.Equal(t, "Linked PROJ-2 to document doc-7\n", stdout)

	stdout, _, err = execute(t, "link", "show", "PROJ-2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "PROJ-2 -> doc-7 (Sprint notes)")

	_, _, err = execute(t, "link", "clear", "PROJ-2")
	require.NoError(t, err)

	stdout, _, err = execute(t, "link", "show", "PROJ-2")
	require.NoError(t, err)
	assert.Equal(t, "PROJ-2 is not linked to a document\n", stdout)
}

func TestLogLevelFlag(t *testing.T) {
	setupTest(t)
	t.Cleanup(func() { logging.SetupLogger(os.Stderr, logging.LevelInfo) })

	_, stderr, err := execute(t, "--log-level", "debug", "--log-format", "json", "link", "show", "PROJ-1")
	require.NoError(t, err)
	assert.Contains(t, stderr, `"msg":"logger configured"`)
}

func TestInvalidConfig(t *testing.T) {
	setupTest(t)
	t.Setenv("JIRADOCS_MAX_LINKED", "0")

	_, _, err := execute(t, "link", "show", "PROJ-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JIRADOCS_MAX_LINKED must be positive")
}

func TestDocsCreateLeavesInfoLogToClient(t *testing.T) {
	setupTest(t)
	t.Cleanup(func() { logging.SetupLogger(os.Stderr, logging.LevelInfo) })

	var logs bytes.Buffer
	logging.SetupLogger(&logs, logging.LevelInfo)

	_, _, err := execute(t, "docs", "create", "Roadmap")
	require.NoError(t, err)
	assert.NotContains(t, logs.String(), "document")

	logs.Reset()
	logging.SetupLogger(&logs, logging.LevelDebug)

	_, _, err = execute(t, "docs", "create", "Roadmap")
	require.NoError(t, err)
	assert.Contains(t, logs.String(), `msg="document ready" doc=new-doc name=Roadmap`)
}
