package campaign

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonathan/outreach-agent/internal/types"
)

func TestCSVStore_MissingFileIsEmpty(t *testing.T) {
	store := NewCSVStore(filepath.Join(t.TempDir(), "results.csv"), nil)

	records, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCSVStore_PutWritesHeaderAndRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.csv")
	store := NewCSVStore(path, nil)

	err := store.Put(context.Background(), types.ResultRecord{
		URL:            "https://a.example",
		DisplayName:    "Joe's, Downtown",
		ContactPageURL: "https://a.example/contact",
		Status:         types.Sent(),
		Timestamp:      fixedNow,
		RunID:          "run-1",
	})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"website_url,restaurant_name,contact_page_url,status,timestamp,run_id\n"+
			"https://a.example,\"Joe's, Downtown\",https://a.example/contact,sent,2026-03-14T09:30:00Z,run-1\n",
		string(content))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestCSVStore_UpdatePreservesOtherRecordsAndOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	legacy := "website_url,restaurant_name,contact_page_url,status\n" +
		"https://a.example,Joe's,,no contact page found\n" +
		"https://b.example,Bob's,https://b.example/contact,failed: no confirmation detected\n" +
		"https://c.example,Cal's,https://c.example/contact,sent\n"
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))

	store := NewCSVStore(path, nil)
	err := store.Put(context.Background(), types.ResultRecord{
		URL:            "https://b.example/",
		DisplayName:    "Bob's",
		ContactPageURL: "https://b.example/contact",
		Status:         types.Sent(),
		Timestamp:      fixedNow,
		RunID:          "run-2",
	})
	require.NoError(t, err)

	records, err := NewCSVStore(path, nil).Records()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "https://a.example", records[0].URL)
	assert.Equal(t, types.NoContactPage(), records[0].Status)
	assert.True(t, records[0].Timestamp.IsZero())

	assert.Equal(t, "https://b.example/", records[1].URL)
	assert.Equal(t, types.Sent(), records[1].Status)
	assert.Equal(t, "run-2", records[1].RunID)
	assert.True(t, fixedNow.Equal(records[1].Timestamp))

	assert.Equal(t, "https://c.example", records[2].URL)
	assert.Equal(t, types.Sent(), records[2].Status)
}

func TestCSVStore_NeverOverwritesSent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	store := NewCSVStore(path, nil)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, types.ResultRecord{URL: "https://a.example", Status: types.Sent(), RunID: "one"}))
	require.NoError(t, store.Put(ctx, types.ResultRecord{URL: "https://a.example", Status: types.Errored("timeout"), RunID: "two"}))

	loaded, err := NewCSVStore(path, nil).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Sent(), loaded["https://a.example"].Status)
	assert.Equal(t, "one", loaded["https://a.example"].RunID)
}

func TestCSVStore_LoadKeysByNormalizedURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	content := "\ufeffWebsite_URL,Restaurant_Name,Status\nHTTPS://A.example/,Joe's,sent\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	loaded, err := NewCSVStore(path, nil).Load(context.Background())
	require.NoError(t, err)

	rec, ok := loaded[types.NormalizeURL("https://a.example")]
	require.True(t, ok)
	assert.Equal(t, "Joe's", rec.DisplayName)
	assert.True(t, rec.Status.IsSent())
}

func TestCSVStore_SchemelessRowSharesTargetKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	content := "website_url,restaurant_name,contact_page_url,status\njoes.com,Joe's,,sent\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	store := NewCSVStore(path, nil)
	loaded, err := store.Load(context.Background())
	require.NoError(t, err)

	rec, ok := loaded[types.Target{URL: "https://joes.com"}.Key()]
	require.True(t, ok)
	assert.True(t, rec.Status.IsSent())

	err = store.Put(context.Background(), types.ResultRecord{URL: "https://joes.com", Status: types.Failed("timeout")})
	require.NoError(t, err)

	records, err := store.Records()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "joes.com", records[0].URL)
	assert.True(t, records[0].Status.IsSent())
}

func TestCSVStore_WriteFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	store := NewCSVStore(filepath.Join(blocker, "results.csv"), nil)
	err := store.Put(context.Background(), types.ResultRecord{URL: "https://a.example", Status: types.Sent()})
	assert.Error(t, err)
}

func TestParseResults(t *testing.T) {
	content := "website_url,restaurant_name,contact_page_url,status,timestamp,run_id\n" +
		"https://a.example,Joe's,,no_contact_page,2026-03-14T09:30:00Z,r1\n" +
		"https://b.example,Bob's,,error: timeout,2026-03-14 10:00:00,\n" +
		",,,,,\n" +
		"https://c.example,Cal's,,something odd,,\n"

	records, err := ParseResults(strings.NewReader(content))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, types.NoContactPage(), records[0].Status)
	assert.True(t, fixedNow.Equal(records[0].Timestamp))
	assert.Equal(t, "r1", records[0].RunID)

	assert.Equal(t, types.Errored("timeout"), records[1].Status)
	assert.Equal(t, 10, records[1].Timestamp.Hour())

	assert.Equal(t, types.Errored("something odd"), records[2].Status)
}

func TestParseResults_Errors(t *testing.T) {
	records, err := ParseResults(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = ParseResults(strings.NewReader("name,status\nx,sent\n"))
	assert.ErrorContains(t, err, "website_url")

	_, err = ParseResults(strings.NewReader("website_url,status\n\"unterminated,sent\n"))
	assert.ErrorContains(t, err, "malformed row")
}

func TestWriteResults_RoundTripsStatusReasons(t *testing.T) {
	in := []types.ResultRecord{
		{URL: "https://a.example", Status: types.Failed("missing required field: email")},
		{URL: "https://b.example", Status: types.Errored("panic: runtime error")},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, in))
	assert.Contains(t, buf.String(), "failed: missing required field: email")

	out, err := ParseResults(&buf)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, in[0].Status, out[0].Status)
	assert.Equal(t, in[1].Status, out[1].Status)
}

func TestTeeStore_MirrorFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	primary := newMemStore()
	healthy := newMemStore()
	broken := newMemStore()
	broken.putErr = errors.New("connection refused")

	tee := NewTeeStore(primary, zap.New(core), broken, healthy)
	rec := types.ResultRecord{URL: "https://a.example", Status: types.Sent(), Timestamp: time.Now()}

	require.NoError(t, tee.Put(context.Background(), rec))
	assert.Len(t, primary.puts, 1)
	assert.Len(t, healthy.puts, 1)
	assert.Equal(t, 1, logs.FilterMessage("Failed to mirror result").Len())
}

func TestTeeStore_PrimaryIsAuthoritative(t *testing.T) {
	primary := newMemStore(types.ResultRecord{URL: "https://a.example", Status: types.Sent()})
	mirror := newMemStore(types.ResultRecord{URL: "https://z.example", Status: types.Sent()})
	tee := NewTeeStore(primary, nil, mirror)

	loaded, err := tee.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, loaded, "https://a.example")
	assert.NotContains(t, loaded, "https://z.example")

	primary.putErr = errors.New("disk full")
	err = tee.Put(context.Background(), types.ResultRecord{URL: "https://b.example"})
	assert.ErrorContains(t, err, "disk full")
	assert.Empty(t, mirror.puts)
}
