package bench

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun(t *testing.T) {
	report, err := Run(context.Background(), Options{Items: 50, Rounds: 5, Seed: 1, Logger: quiet()})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(report.Cases) != 2 {
		t.Fatalf("cases = %d, want 2", len(report.Cases))
	}

	for _, name := range []string{CaseReverse, CaseShuffle} {
		c, ok := report.Case(name)
		if !ok {
			t.Fatalf("case %q missing", name)
		}
		if c.RemovesPerRound != 0 {
			t.Errorf("%s removes per round = %v, want 0", name, c.RemovesPerRound)
		}
		if c.LatencyMS.Min > c.LatencyMS.Max {
			t.Errorf("%s min %v > max %v", name, c.LatencyMS.Min, c.LatencyMS.Max)
		}
	}

	rev, _ := report.Case(CaseReverse)
	if rev.InsertsPerRound <= 0 || rev.InsertsPerRound >= 50 {
		t.Errorf("reverse inserts per round = %v, want within (0, 50)", rev.InsertsPerRound)
	}
	if rev.MutationsPerRound != rev.InsertsPerRound {
		t.Errorf("reverse mutations = %v, inserts = %v, want only moves", rev.MutationsPerRound, rev.InsertsPerRound)
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, Options{Items: 10, Rounds: 1, Logger: quiet()}); !errors.Is(err, context.Canceled) {
		t.Errorf("Run(canceled) error = %v, want context.Canceled", err)
	}
}

func TestFixtureVerify(t *testing.T) {
	f := newFixture(quiet())
	defer f.close()

	if err := f.render(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	if err := f.verify([]string{"a", "b"}); err != nil {
		t.Errorf("verify(a, b) error = %v", err)
	}
	if err := f.verify([]string{"b", "a"}); !errors.Is(err, ErrOrderMismatch) {
		t.Errorf("verify(b, a) error = %v, want ErrOrderMismatch", err)
	}
	if err := f.verify([]string{"a"}); !errors.Is(err, ErrOrderMismatch) {
		t.Errorf("verify(a) error = %v, want ErrOrderMismatch", err)
	}
}

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	tests := []struct {
		p    float64
		want time.Duration
	}{
		{0, 1},
		{0.5, 5},
		{0.95, 10},
		{1, 10},
	}
	for _, tt := range tests {
		if got := percentile(sorted, tt.p); got != tt.want {
			t.Errorf("percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
	if got := percentile(nil, 0.5); got != 0 {
		t.Errorf("percentile(nil) = %v, want 0", got)
	}
}

func TestNewCaseResult(t *testing.T) {
	lat := []time.Duration{3 * time.Millisecond, time.Millisecond, 2 * time.Millisecond}
	res := newCaseResult("x", lat, mutationCounts{total: 9, inserts: 6, removes: 3})

	if res.LatencyMS.Min != 1 || res.LatencyMS.Max != 3 || res.LatencyMS.Mean != 2 {
		t.Errorf("latency = %+v, want min 1 mean 2 max 3", res.LatencyMS)
	}
	if res.MutationsPerRound != 3 || res.InsertsPerRound != 2 || res.RemovesPerRound != 1 {
		t.Errorf("per round = %v/%v/%v, want 3/2/1", res.MutationsPerRound, res.InsertsPerRound, res.RemovesPerRound)
	}
}

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(in.Body); err != nil {
		return nil, err
	}
	f.body = buf.Bytes()
	return &s3.PutObjectOutput{}, nil
}

func TestStorePut(t *testing.T) {
	fake := &fakePutter{}
	store := NewStore(fake, "reports", "bench/")
	store.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }

	report := newReport(Options{Items: 10, Rounds: 2})
	key, err := store.Put(context.Background(), report)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if want := "bench/reorder-20260304T050607Z.json"; key != want {
		t.Errorf("key = %q, want %q", key, want)
	}
	if got := aws.ToString(fake.input.Bucket); got != "reports" {
		t.Errorf("bucket = %q, want reports", got)
	}
	if got := aws.ToString(fake.input.ContentType); got != "application/json" {
		t.Errorf("content type = %q", got)
	}
	if got := fake.input.Metadata["items"]; got != "10" {
		t.Errorf("items metadata = %q, want 10", got)
	}

	var decoded Report
	if err := json.Unmarshal(fake.body, &decoded); err != nil {
		t.Fatalf("uploaded body is not JSON: %v", err)
	}
	if decoded.Workload.Rounds != 2 {
		t.Errorf("uploaded rounds = %d, want 2", decoded.Workload.Rounds)
	}
}

func TestStorePutError(t *testing.T) {
	boom := errors.New("access denied")
	store := NewStore(&fakePutter{err: boom}, "reports", "")
	if _, err := store.Put(context.Background(), newReport(Options{})); !errors.Is(err, boom) {
		t.Errorf("Put() error = %v, want wrapped %v", err, boom)
	}
}

func TestEnvCredentials(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	if _, err := envCredentials(context.Background()); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("envCredentials() error = %v, want ErrNoCredentials", err)
	}

	t.Setenv("AWS_ACCESS_KEY_ID", "AKID")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("AWS_SESSION_TOKEN", "token")
	creds, err := envCredentials(context.Background())
	if err != nil {
		t.Fatalf("envCredentials() error = %v", err)
	}
	if creds.AccessKeyID != "AKID" || creds.SecretAccessKey != "secret" || creds.SessionToken != "token" {
		t.Errorf("creds = %+v", creds)
	}
}
