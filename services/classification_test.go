package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"regexp"
	"testing"
	"time"

	"medivize/apperr"
	"medivize/locale"
	"medivize/models"
	"medivize/providers"
	"medivize/storage"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type fakeClassifier struct {
	prediction *providers.Prediction
	err        error
	calls      int
	gotName    string
}

func (f *fakeClassifier) Name() string { return "fake" }

func (f *fakeClassifier) Predict(_ context.Context, _ []byte, filename string) (*providers.Prediction, error) {
	f.calls++
	f.gotName = filename
	if f.err != nil {
		return nil, f.err
	}
	return f.prediction, nil
}

type fakeLookup struct {
	rec   *models.DrugRecord
	err   error
	calls int
}

func (f *fakeLookup) GetByName(_ context.Context, _ string) (*models.DrugRecord, error) {
	f.calls++
	return f.rec, f.err
}

type failingStore struct{ storage.UploadStore }

func (failingStore) Save(context.Context, string, []byte, string) (string, error) {
	return "", errors.New("disk full")
}

func pngBytes(tb testing.TB) []byte {
	tb.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		tb.Fatal(err)
	}
	return buf.Bytes()
}

type gatewayFixture struct {
	svc        *ClassificationService
	fs         afero.Fs
	classifier *fakeClassifier
	lookup     *fakeLookup
}

func newGatewayFixture(tb testing.TB) *gatewayFixture {
	tb.Helper()
	fs := afero.NewMemMapFs()
	store, err := storage.NewLocalStore(fs, "uploads", "/uploads")
	if err != nil {
		tb.Fatal(err)
	}
	f := &gatewayFixture{
		fs:         fs,
		classifier: &fakeClassifier{},
		lookup:     &fakeLookup{},
	}
	f.svc = NewClassificationService(store, f.classifier, f.lookup, 5<<20, zap.NewNop(), nil)
	f.svc.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.UTC) }
	return f
}

func (f *gatewayFixture) storedFiles(tb testing.TB) []string {
	tb.Helper()
	entries, err := afero.ReadDir(f.fs, "uploads")
	if err != nil {
		tb.Fatal(err)
	}
	var out []string
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}

func TestClassifyRecognizedDrug(t *testing.T) {
	f := newGatewayFixture(t)
	f.classifier.prediction = &providers.Prediction{Label: "Paracetamol", Confidence: 0.92}
	f.lookup.rec = &models.DrugRecord{Name: "Paracetamol", Dosage: "500 mg", SideEffects: []string{}}

	data := pngBytes(t)
	res, err := f.svc.Classify(context.Background(), Upload{Filename: "Foto.PNG", Size: int64(len(data)), Data: data})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.DrugName != "Paracetamol" || res.Confidence != 0.92 {
		t.Errorf("result = %+v", res)
	}
	if res.DrugDetails == nil || res.DrugDetails.Dosage != "500 mg" {
		t.Errorf("details = %+v", res.DrugDetails)
	}
	if res.ProcessedAt != "2024-01-02T03:04:05.006Z" {
		t.Errorf("processedAt = %q", res.ProcessedAt)
	}
	if !regexp.MustCompile(`^/uploads/drug-1704164645006-\d+\.PNG$`).MatchString(res.ImageURL) {
		t.Errorf("imageUrl = %q", res.ImageURL)
	}
	if f.classifier.gotName != "Foto.PNG" {
		t.Errorf("classifier got filename %q", f.classifier.gotName)
	}

	files := f.storedFiles(t)
	if len(files) != 1 || "/uploads/"+files[0] != res.ImageURL {
		t.Errorf("upload not retained: %v", files)
	}
}

func TestClassifyEmptyLabelIsUnrecognized(t *testing.T) {
	f := newGatewayFixture(t)
	f.classifier.prediction = &providers.Prediction{Label: "", Confidence: 0}

	data := pngBytes(t)
	res, err := f.svc.Classify(context.Background(), Upload{Filename: "a.png", Size: int64(len(data)), Data: data})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.DrugName != locale.Text(locale.Unrecognized) || res.DrugDetails != nil {
		t.Errorf("result = %+v", res)
	}
	if f.lookup.calls != 0 {
		t.Errorf("catalog consulted for unrecognized image")
	}
}

func TestClassifyLookupFailuresDoNotFail(t *testing.T) {
	cases := map[string]error{
		"not found":       apperr.New(apperr.NotFound, "nope"),
		"storage failure": apperr.Wrap(apperr.StorageFailure, "db down", errors.New("connection refused")),
	}
	for name, lookupErr := range cases {
		t.Run(name, func(t *testing.T) {
			f := newGatewayFixture(t)
			f.classifier.prediction = &providers.Prediction{Label: "Obat X", Confidence: 0.4}
			f.lookup.err = lookupErr

			data := pngBytes(t)
			res, err := f.svc.Classify(context.Background(), Upload{Filename: "a.png", Size: int64(len(data)), Data: data})
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if res.DrugName != "Obat X" || res.DrugDetails != nil {
				t.Errorf("result = %+v", res)
			}
			if len(f.storedFiles(t)) != 1 {
				t.Errorf("upload should be retained")
			}
		})
	}
}

func TestClassifyRejectsBeforeClassifier(t *testing.T) {
	data := pngBytes(t)
	tests := []struct {
		name string
		up   Upload
		kind apperr.Kind
		msg  string
	}{
		{"missing", Upload{}, apperr.InvalidArgument, locale.Text(locale.ImageMissing)},
		{"wrong extension", Upload{Filename: "a.gif", Size: int64(len(data)), Data: data}, apperr.UnsupportedMediaType, locale.Text(locale.ImageTypeNotAllowed)},
		{"no extension", Upload{Filename: "image", Size: int64(len(data)), Data: data}, apperr.UnsupportedMediaType, locale.Text(locale.ImageTypeNotAllowed)},
		{"oversized", Upload{Filename: "a.jpg", Size: 6 << 20, Data: data}, apperr.InvalidArgument, locale.Textf(locale.ImageTooLarge, 5)},
		{"empty file", Upload{Filename: "a.jpg"}, apperr.InvalidArgument, locale.Text(locale.ImageMissing)},
		{"text disguised as image", Upload{Filename: "a.jpg", Size: 11, Data: []byte("hello world")}, apperr.UnsupportedMediaType, locale.Text(locale.ImageTypeNotAllowed)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGatewayFixture(t)
			_, err := f.svc.Classify(context.Background(), tt.up)
			var ae *apperr.Error
			if !errors.As(err, &ae) {
				t.Fatalf("expected *apperr.Error, got %v", err)
			}
			if ae.Kind != tt.kind || ae.Message != tt.msg {
				t.Errorf("got %s %q, want %s %q", ae.Kind, ae.Message, tt.kind, tt.msg)
			}
			if f.classifier.calls != 0 {
				t.Errorf("classifier called %d times", f.classifier.calls)
			}
			if files := f.storedFiles(t); len(files) != 0 {
				t.Errorf("files stored: %v", files)
			}
		})
	}
}

func TestClassifyUpstreamFailureRemovesUpload(t *testing.T) {
	timeout := apperr.Upstream(apperr.ReasonTimeout, locale.Text(locale.ClassifierTimeout), context.DeadlineExceeded)

	f := newGatewayFixture(t)
	f.classifier.err = timeout

	data := pngBytes(t)
	_, err := f.svc.Classify(context.Background(), Upload{Filename: "a.png", Size: int64(len(data)), Data: data})
	if !errors.Is(err, timeout) {
		t.Fatalf("err = %v, want upstream timeout", err)
	}
	if files := f.storedFiles(t); len(files) != 0 {
		t.Errorf("upload not removed: %v", files)
	}
	if f.lookup.calls != 0 {
		t.Errorf("catalog consulted after upstream failure")
	}
}

func TestClassifyUnexpectedClassifierError(t *testing.T) {
	f := newGatewayFixture(t)
	f.classifier.err = errors.New("boom")

	data := pngBytes(t)
	_, err := f.svc.Classify(context.Background(), Upload{Filename: "a.png", Size: int64(len(data)), Data: data})
	if !apperr.Is(err, apperr.Internal) {
		t.Fatalf("err = %v, want Internal", err)
	}
	if files := f.storedFiles(t); len(files) != 0 {
		t.Errorf("upload not removed: %v", files)
	}
}

func TestClassifyStoreFailure(t *testing.T) {
	f := newGatewayFixture(t)
	f.svc.Store = failingStore{}

	data := pngBytes(t)
	_, err := f.svc.Classify(context.Background(), Upload{Filename: "a.png", Size: int64(len(data)), Data: data})
	if !apperr.Is(err, apperr.Internal) {
		t.Fatalf("err = %v, want Internal", err)
	}
	if f.classifier.calls != 0 {
		t.Errorf("classifier called without stored upload")
	}
}

func TestClassifyPrefersExactCatalogMatch(t *testing.T) {
	f := newGatewayFixture(t)
	catalog, _ := newTestCatalog(t, apoParacetamol, paracetamol)
	f.svc.Catalog = catalog
	f.classifier.prediction = &providers.Prediction{Label: "Paracetamol", Confidence: 0.92}

	data := pngBytes(t)
	res, err := f.svc.Classify(context.Background(), Upload{Filename: "a.png", Size: int64(len(data)), Data: data})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.DrugDetails == nil {
		t.Fatal("expected drug details")
	}
	if res.DrugDetails.Name != "Paracetamol" || res.DrugDetails.Dosage != paracetamol.Dosage {
		t.Errorf("details = %s (%s), want Paracetamol (%s)", res.DrugDetails.Name, res.DrugDetails.Dosage, paracetamol.Dosage)
	}
}

func TestClassifyFallsBackToSubstringMatch(t *testing.T) {
	f := newGatewayFixture(t)
	catalog, _ := newTestCatalog(t, amoxicillin, paracetamol)
	f.svc.Catalog = catalog
	f.classifier.prediction = &providers.Prediction{Label: "amoxi", Confidence: 0.5}

	data := pngBytes(t)
	res, err := f.svc.Classify(context.Background(), Upload{Filename: "a.png", Size: int64(len(data)), Data: data})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.DrugDetails == nil || res.DrugDetails.Name != "Amoxicillin" {
		t.Errorf("details = %+v", res.DrugDetails)
	}
}
