package notify_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"siteprobe/internal/logger"
	"siteprobe/internal/notify"
	"siteprobe/internal/orchestrator"
	"siteprobe/internal/report"
	"siteprobe/internal/suite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"
)

type scored float64

func (s scored) Score() (float64, bool) { return float64(s), true }

func sampleReport() *report.Report {
	start := time.Date(2026, 3, 1, 12, 30, 5, 0, time.UTC)
	return report.Aggregate(report.Run{
		ID:         "run-42",
		Site:       "https://example.com",
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
		URLs:       []string{"https://example.com/"},
		Executed:   []suite.Name{suite.SEO},
		Results: orchestrator.RunResults{
			suite.SEO: {suite.Success("https://example.com/", start, scored(75))},
		},
	})
}

func TestFile_WritesJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	f := notify.NewFile(dir, logger.NewNop())
	rep := sampleReport()

	require.NoError(t, f.Notify(context.Background(), rep))

	path := f.Path(rep)
	assert.Equal(t, filepath.Join(dir, "report-20260301-123005.json"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-42", decoded["id"])
	assert.Equal(t, 1.0, decoded["urlCount"])
}

func TestFile_UnwritableDirIsDeliveryError(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := notify.NewFile(filepath.Join(blocker, "sub"), logger.NewNop()).Notify(context.Background(), sampleReport())
	var de *notify.DeliveryError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "file", de.Channel)
}

type recordingSender struct {
	messages []*gomail.Msg
	err      error
}

func (s *recordingSender) DialAndSendWithContext(_ context.Context, messages ...*gomail.Msg) error {
	s.messages = append(s.messages, messages...)
	return s.err
}

func emailConfig() notify.EmailConfig {
	return notify.EmailConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "user",
		Password: "pass",
		From:     "probe@example.com",
		To:       []string{"a@example.com", "b@example.com"},
		Subject:  "Test Report",
	}
}

func TestEmail_SendsMultipartWithAttachment(t *testing.T) {
	sender := &recordingSender{}
	e := notify.NewEmail(emailConfig(), logger.NewNop(), notify.WithSender(sender))

	require.NoError(t, e.Notify(context.Background(), sampleReport()))
	require.Len(t, sender.messages, 1)

	var raw bytes.Buffer
	_, err := sender.messages[0].WriteTo(&raw)
	require.NoError(t, err)

	msg, err := mail.ReadMessage(&raw)
	require.NoError(t, err)

	from, err := msg.Header.AddressList("From")
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, "probe@example.com", from[0].Address)

	to, err := msg.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 2)
	assert.Equal(t, "a@example.com", to[0].Address)
	assert.Equal(t, "b@example.com", to[1].Address)

	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Test Report: https://example.com", subject)

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	mr := multipart.NewReader(msg.Body, params["boundary"])
	text, err := mr.NextPart()
	require.NoError(t, err)
	body, err := io.ReadAll(text)
	require.NoError(t, err)
	assert.Contains(t, string(body), "run-42")

	attachment, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "report-20260301-123005.json", attachment.FileName())
	encoded, err := io.ReadAll(attachment)
	require.NoError(t, err)
	decoded, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(string(encoded)), ""))
	require.NoError(t, err)
	assert.Contains(t, string(decoded), `"id": "run-42"`)
}

func TestEmail_Client(t *testing.T) {
	client, err := notify.NewEmail(emailConfig(), logger.NewNop()).Client()
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", client.ServerAddr())

	cfg := emailConfig()
	cfg.Port = 465
	client, err = notify.NewEmail(cfg, logger.NewNop()).Client()
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:465", client.ServerAddr())
}

func TestEmail_Failures(t *testing.T) {
	failing := notify.NewEmail(emailConfig(), logger.NewNop(),
		notify.WithSender(&recordingSender{err: errors.New("connection refused")}))
	err := failing.Notify(context.Background(), sampleReport())
	var de *notify.DeliveryError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "email", de.Channel)
	assert.Contains(t, err.Error(), "connection refused")

	badFrom := emailConfig()
	badFrom.From = "not an address"
	err = notify.NewEmail(badFrom, logger.NewNop(), notify.WithSender(&recordingSender{})).
		Notify(context.Background(), sampleReport())
	require.True(t, errors.As(err, &de))

	unconfigured := notify.NewEmail(notify.EmailConfig{}, logger.NewNop())
	assert.Error(t, unconfigured.Notify(context.Background(), sampleReport()))
}

type notifierFunc func(context.Context, *report.Report) error

func (f notifierFunc) Notify(ctx context.Context, r *report.Report) error { return f(ctx, r) }

func TestMulti_RunsAllAndJoins(t *testing.T) {
	var calls int
	okN := notifierFunc(func(context.Context, *report.Report) error { calls++; return nil })
	bad := notifierFunc(func(context.Context, *report.Report) error { calls++; return errors.New("nope") })

	err := notify.NewMulti(logger.NewNop(), bad, okN, bad).Notify(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Equal(t, 3, calls)

	var de *notify.DeliveryError
	assert.True(t, errors.As(err, &de))

	assert.NoError(t, notify.NewMulti(logger.NewNop(), okN).Notify(context.Background(), sampleReport()))
	assert.NoError(t, notify.NewMulti(logger.NewNop()).Notify(context.Background(), sampleReport()))
}
