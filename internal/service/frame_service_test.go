package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"swimmer-tracker-go/internal/client"
	"swimmer-tracker-go/internal/geo"
	"swimmer-tracker-go/internal/model"
	"swimmer-tracker-go/internal/repository"
	"swimmer-tracker-go/internal/tracker"
	"swimmer-tracker-go/internal/water"
	"swimmer-tracker-go/pkg/models"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	poolBlue = color.RGBA{R: 10, G: 10, B: 200, A: 255}
	deckTan  = color.RGBA{R: 200, G: 200, B: 10, A: 255}
	epoch    = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
)

// poolPNG кадр 200x200: сверху бортик, снизу вода
func poolPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			if y >= 100 {
				img.SetRGBA(x, y, poolBlue)
			} else {
				img.SetRGBA(x, y, deckTan)
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type fakeDetector struct {
	result *client.DetectResult
	err    error
	health *models.HealthResponse
	calls  int
}

func (f *fakeDetector) Detect(ctx context.Context, imageData []byte, filename string) (*client.DetectResult, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakeDetector) CheckHealth(ctx context.Context) (*models.HealthResponse, error) {
	if f.health == nil {
		return nil, client.ErrDetectorUnavailable
	}
	return f.health, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []tracker.AlertEvent
}

func (r *recordingDispatcher) Dispatch(events []tracker.AlertEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func submergedDetection() tracker.Detection {
	return tracker.Detection{
		Box:   geo.BoundingBox{Left: 50, Top: 120, Right: 100, Bottom: 180},
		Label: "person",
		Score: 0.9,
	}
}

type fixture struct {
	svc        *FrameService
	detector   *fakeDetector
	repo       repository.AlertRepository
	dispatcher *recordingDispatcher
	clock      *clock
	hook       *test.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, hook := test.NewNullLogger()
	f := &fixture{
		detector: &fakeDetector{result: &client.DetectResult{
			Detections: []tracker.Detection{submergedDetection()},
			ImageSize:  geo.Size{Width: 200, Height: 200},
		}},
		repo:       repository.NewMemoryAlertRepository(),
		dispatcher: &recordingDispatcher{},
		clock:      &clock{t: epoch},
		hook:       hook,
	}
	f.svc = NewFrameService(
		f.detector,
		water.NewClassifier(water.DefaultConfig()),
		tracker.New(tracker.DefaultConfig(), geo.NewProjector(geo.DefaultLandscapeTopOffset)),
		f.repo,
		f.dispatcher,
		logger,
	)
	f.svc.now = f.clock.now
	return f
}

func TestProcessFrameRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ProcessFrame(context.Background(), models.FrameRequest{})
	assert.ErrorIs(t, err, ErrEmptyFrame)

	_, err = f.svc.ProcessFrame(context.Background(), models.FrameRequest{ImageData: []byte("not an image")})
	assert.ErrorIs(t, err, ErrInvalidImage)
	assert.Zero(t, f.detector.calls)
}

func TestProcessFrameTracksAndAlerts(t *testing.T) {
	f := newFixture(t)
	frame := poolPNG(t)
	ctx := context.Background()

	resp, err := f.svc.ProcessFrame(ctx, models.FrameRequest{ImageData: frame})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.FrameIndex)
	assert.InDelta(t, 0.5, resp.WaterCoverage, 1e-9)
	require.Len(t, resp.Swimmers, 1)
	id := resp.Swimmers[0].ID
	assert.Equal(t, string(tracker.StatusSubmerged), resp.Swimmers[0].Status)
	assert.Equal(t, models.Stats{PersonsDetected: 1, SwimmersInPool: 1, Submerged: 1}, resp.Stats)
	assert.Empty(t, resp.Alerts)

	f.clock.t = epoch.Add(15 * time.Second)
	resp, err = f.svc.ProcessFrame(ctx, models.FrameRequest{ImageData: frame})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.FrameIndex)
	assert.Equal(t, id, resp.Swimmers[0].ID)
	assert.InDelta(t, 15, resp.Swimmers[0].SubmergedSeconds, 1e-9)
	assert.Empty(t, resp.Alerts)

	f.clock.t = epoch.Add(30 * time.Second)
	resp, err = f.svc.ProcessFrame(ctx, models.FrameRequest{ImageData: frame})
	require.NoError(t, err)
	require.Len(t, resp.Alerts, 1)
	assert.Equal(t, id, resp.Alerts[0].TrackletID)
	assert.NotEmpty(t, resp.Alerts[0].ID)
	assert.True(t, resp.Swimmers[0].AlertFired)
	assert.Equal(t, 1, resp.Stats.ActiveAlerts)

	f.clock.t = epoch.Add(45 * time.Second)
	resp, err = f.svc.ProcessFrame(ctx, models.FrameRequest{ImageData: frame})
	require.NoError(t, err)
	assert.Empty(t, resp.Alerts)

	f.dispatcher.mu.Lock()
	assert.Len(t, f.dispatcher.events, 1)
	f.dispatcher.mu.Unlock()

	alerts, total, err := f.svc.ListAlerts(1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, alerts, 1)
	assert.Equal(t, id, alerts[0].TrackletID)
	assert.Equal(t, int64(3), alerts[0].FrameIndex)
	assert.InDelta(t, 30, alerts[0].SubmergedSeconds, 1e-9)

	got, err := f.svc.GetAlert(alerts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, alerts[0], *got)

	_, err = f.svc.GetAlert("missing")
	assert.ErrorIs(t, err, repository.ErrAlertNotFound)
}

func TestProcessFrameDetectorFailureAgesTracklets(t *testing.T) {
	f := newFixture(t)
	frame := poolPNG(t)
	ctx := context.Background()

	_, err := f.svc.ProcessFrame(ctx, models.FrameRequest{ImageData: frame})
	require.NoError(t, err)

	f.detector.result = nil
	f.detector.err = client.ErrDetectorUnavailable
	for i := 0; i < 6; i++ {
		f.clock.t = f.clock.t.Add(100 * time.Millisecond)
		resp, err := f.svc.ProcessFrame(ctx, models.FrameRequest{ImageData: frame})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.DetectorError)
	}
	assert.Len(t, f.svc.Snapshot().Swimmers, 0)
}

func TestProcessFrameUsesClientDetections(t *testing.T) {
	f := newFixture(t)
	index := int64(100)
	at := epoch.Add(time.Hour)

	resp, err := f.svc.ProcessFrame(context.Background(), models.FrameRequest{
		ImageData:    poolPNG(t),
		FrameIndex:   &index,
		Timestamp:    &at,
		DetectorSize: models.Size{Width: 100, Height: 100},
		Detections: []models.Detection{
			{Left: 25, Top: 5, Right: 50, Bottom: 30, Label: "person", Score: 0.7},
			{Left: 25, Top: 5, Right: 50, Bottom: 30, Label: "chair", Score: 0.9},
		},
	})
	require.NoError(t, err)
	assert.Zero(t, f.detector.calls)
	assert.Equal(t, int64(100), resp.FrameIndex)
	require.Len(t, resp.Swimmers, 1)
	assert.Equal(t, models.Box{Left: 50, Top: 10, Right: 100, Bottom: 60}, resp.Swimmers[0].Box)
	assert.Equal(t, string(tracker.StatusOutOfPool), resp.Swimmers[0].Status)

	snap := f.svc.Snapshot()
	assert.Equal(t, int64(100), snap.FrameIndex)
	assert.Equal(t, 1, snap.Stats.PersonsDetected)
}

func TestProcessFrameRotatesBeforeClassifying(t *testing.T) {
	f := newFixture(t)
	f.detector.result = &client.DetectResult{}

	// Поворот на 180: вода оказывается сверху
	resp, err := f.svc.ProcessFrame(context.Background(), models.FrameRequest{ImageData: poolPNG(t), Orientation: 180})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, resp.WaterCoverage, 1e-9)

	f.detector.result = &client.DetectResult{
		// Рамка в координатах исходного кадра, вода в нем снизу
		Detections: []tracker.Detection{{Box: geo.BoundingBox{Left: 100, Top: 120, Right: 150, Bottom: 180}, Label: "person", Score: 0.9}},
	}
	resp, err = f.svc.ProcessFrame(context.Background(), models.FrameRequest{ImageData: poolPNG(t), Orientation: 180})
	require.NoError(t, err)
	require.Len(t, resp.Swimmers, 1)
	assert.Equal(t, models.Box{Left: 50, Top: 20, Right: 100, Bottom: 80}, resp.Swimmers[0].Box)
	assert.Equal(t, string(tracker.StatusSubmerged), resp.Swimmers[0].Status)
}

func TestReset(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ProcessFrame(context.Background(), models.FrameRequest{ImageData: poolPNG(t)})
	require.NoError(t, err)
	require.Len(t, f.svc.Snapshot().Swimmers, 1)

	f.svc.Reset()
	assert.Empty(t, f.svc.Snapshot().Swimmers)
}

func TestCheckHealth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.CheckHealth(ctx), client.ErrDetectorUnavailable)

	f.detector.health = &models.HealthResponse{Status: "healthy", ModelLoaded: false}
	assert.ErrorIs(t, f.svc.CheckHealth(ctx), client.ErrDetectorUnavailable)

	f.detector.health = &models.HealthResponse{Status: "healthy", ModelLoaded: true}
	assert.NoError(t, f.svc.CheckHealth(ctx))
}

type failingRepo struct {
	repository.AlertRepository
}

func (failingRepo) Create(*model.AlertRecord) error { return errors.New("db down") }

func TestProcessFrameSurvivesRepositoryFailure(t *testing.T) {
	f := newFixture(t)
	f.svc.alertRepo = failingRepo{AlertRepository: f.repo}
	frame := poolPNG(t)

	_, err := f.svc.ProcessFrame(context.Background(), models.FrameRequest{ImageData: frame})
	require.NoError(t, err)

	f.clock.t = epoch.Add(31 * time.Second)
	resp, err := f.svc.ProcessFrame(context.Background(), models.FrameRequest{ImageData: frame})
	require.NoError(t, err)
	require.Len(t, resp.Alerts, 1)
	assert.Empty(t, resp.Alerts[0].ID)

	f.dispatcher.mu.Lock()
	assert.Len(t, f.dispatcher.events, 1)
	f.dispatcher.mu.Unlock()
}

func TestRotateUpright(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, poolBlue)
	img.SetRGBA(1, 0, deckTan)

	cw := rotateUpright(img, 90)
	require.Equal(t, image.Rect(0, 0, 1, 2), cw.Bounds())
	assert.Equal(t, poolBlue, color.RGBAModel.Convert(cw.At(0, 0)))

	ccw := rotateUpright(img, 270)
	assert.Equal(t, poolBlue, color.RGBAModel.Convert(ccw.At(0, 1)))

	flipped := rotateUpright(img, 180)
	assert.Equal(t, poolBlue, color.RGBAModel.Convert(flipped.At(1, 0)))

	assert.Same(t, img, rotateUpright(img, 0).(*image.RGBA))
}
