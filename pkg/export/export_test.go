package export

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kass/geo-planner/pkg/archive"
	"github.com/kass/geo-planner/pkg/models"
	"github.com/kass/geo-planner/pkg/planner"
)

type fakeSubmitter struct {
	calls [][]string
	err   error
}

func (f *fakeSubmitter) SubmitPlanner(ctx context.Context, names []string) error {
	f.calls = append(f.calls, names)
	return f.err
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(params.Body)
	f.body = buf.Bytes()
	return &s3.PutObjectOutput{}, nil
}

type failingSink struct{}

func (failingSink) Save(ctx context.Context, data []byte) (string, error) {
	return "", errors.New("disk full")
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(0, 0)
	require.NoError(t, err)
	return r
}

func items(names ...string) []planner.Item {
	c := planner.NewCollection()
	for _, name := range names {
		c.AppendRestaurant(models.RestaurantRecord{Name: name})
	}
	return c.Contents()
}

func TestRenderProducesPNG(t *testing.T) {
	r := newRenderer(t)

	short, err := r.Render(context.Background(), RegionFor(items("A")))
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(short))
	require.NoError(t, err)
	assert.Equal(t, defaultWidth, img.Bounds().Dx())

	long := strings.Repeat("Changdeokgung Palace and Secret Garden ", 10)
	tall, err := r.Render(context.Background(), Region{Title: "t", Lines: []string{long}})
	require.NoError(t, err)
	tallImg, err := png.Decode(bytes.NewReader(tall))
	require.NoError(t, err)
	assert.Greater(t, tallImg.Bounds().Dy(), img.Bounds().Dy())
}

func TestRenderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newRenderer(t).Render(ctx, RegionFor(items("A", "B")))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWrapText(t *testing.T) {
	r := newRenderer(t)
	assert.Equal(t, []string{""}, wrapText("   ", 100, r.body))
	assert.Equal(t, []string{"one two"}, wrapText("one two", 1000, r.body))

	lines := wrapText("alpha beta gamma delta", 60, r.body)
	assert.Greater(t, len(lines), 1)
	assert.Equal(t, "alpha beta gamma delta", strings.Join(lines, " "))
}

func TestRegionFor(t *testing.T) {
	region := RegionFor(items("A", "B"))
	assert.Equal(t, []string{"1. A", "2. B"}, region.Lines)
}

func TestExportToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	bridge := NewBridge(newRenderer(t), &fakeSubmitter{}, nil, zaptest.NewLogger(t), FileSink{Dir: dir})

	location, err := bridge.Export(context.Background(), RegionFor(items("A")))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName), location)

	data, err := os.ReadFile(location)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(data))
	assert.NoError(t, err)

	// a second export replaces the file under the same name
	_, err = bridge.Export(context.Background(), RegionFor(items("A", "B")))
	require.NoError(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestExportToS3(t *testing.T) {
	client := &fakeS3{}
	sink := NewS3Sink(client, "planner-bucket", "ap-northeast-2")
	bridge := NewBridge(newRenderer(t), &fakeSubmitter{}, nil, nil, sink)

	location, err := bridge.Export(context.Background(), RegionFor(items("A")))
	require.NoError(t, err)

	require.NotNil(t, client.input)
	assert.Equal(t, "planner-bucket", *client.input.Bucket)
	assert.Equal(t, "image/png", *client.input.ContentType)
	assert.True(t, strings.HasPrefix(*client.input.Key, "planners/"))
	assert.True(t, strings.HasSuffix(*client.input.Key, "/"+FileName))
	assert.Equal(t, "https://planner-bucket.s3.ap-northeast-2.amazonaws.com/"+*client.input.Key, location)
	assert.NotEmpty(t, client.body)
}

func TestExportFailures(t *testing.T) {
	bridge := NewBridge(newRenderer(t), &fakeSubmitter{}, nil, nil, failingSink{})

	_, err := bridge.Export(context.Background(), Region{})
	assert.ErrorIs(t, err, ErrEmptyPlanner)

	_, err = bridge.Export(context.Background(), RegionFor(items("A")))
	assert.EqualError(t, err, "disk full")

	_, err = NewBridge(newRenderer(t), nil, nil, nil).Export(context.Background(), RegionFor(items("A")))
	assert.Error(t, err)
}

func TestUploadSendsNamesInOrder(t *testing.T) {
	submitter := &fakeSubmitter{}
	store := archive.NewFileStore(filepath.Join(t.TempDir(), "planners.gob"))
	bridge := NewBridge(newRenderer(t), submitter, store, zaptest.NewLogger(t))

	c := planner.NewCollection()
	c.AppendPlace(models.PlaceRecord{Name: "A", ContentID: "1"})
	c.AppendRestaurant(models.RestaurantRecord{Name: "B", Type: "korean"})

	require.NoError(t, bridge.Upload(context.Background(), c.Contents()))
	assert.Equal(t, [][]string{{"A", "B"}}, submitter.calls)

	archived, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, []string{"A", "B"}, archived[0].Names())
}

func TestUploadFailureNotArchived(t *testing.T) {
	submitter := &fakeSubmitter{err: errors.New("502 bad gateway")}
	store := archive.NewFileStore(filepath.Join(t.TempDir(), "planners.gob"))
	bridge := NewBridge(newRenderer(t), submitter, store, nil)

	err := bridge.Upload(context.Background(), items("A"))
	assert.ErrorContains(t, err, "502 bad gateway")

	archived, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, archived)

	assert.ErrorIs(t, bridge.Upload(context.Background(), nil), ErrEmptyPlanner)
	assert.Len(t, submitter.calls, 1)
}
