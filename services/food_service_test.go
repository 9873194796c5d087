package services

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRekognition struct {
	in     *rekognition.DetectLabelsInput
	labels []types.Label
	err    error
}

func (f *fakeRekognition) DetectLabels(_ context.Context, in *rekognition.DetectLabelsInput, _ ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &rekognition.DetectLabelsOutput{Labels: f.labels}, nil
}

func TestRekognitionLabelSettings(t *testing.T) {
	fake := &fakeRekognition{labels: []types.Label{
		{Name: aws.String("Pizza"), Confidence: aws.Float32(98)},
		{Name: aws.String("Food"), Confidence: aws.Float32(97)},
	}}
	img := []byte{0xff, 0xd8, 0xff}

	labels, err := NewRekognitionService(fake).DetectLabels(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pizza", "Food"}, labels)

	require.NotNil(t, fake.in)
	assert.Equal(t, img, fake.in.Image.Bytes)
	assert.Equal(t, int32(5), aws.ToInt32(fake.in.MaxLabels))
	assert.Equal(t, float32(75), aws.ToFloat32(fake.in.MinConfidence))
}

func TestRekognitionErrorIsTransport(t *testing.T) {
	fake := &fakeRekognition{err: errors.New("throttled")}
	_, err := NewRekognitionService(fake).DetectLabels(context.Background(), []byte{1})
	assert.True(t, errors.Is(err, ErrTransport))
}

type stubLabels struct {
	labels []string
	got    []byte
}

func (s *stubLabels) DetectLabels(_ context.Context, image []byte) ([]string, error) {
	s.got = image
	return s.labels, nil
}

func jpegURI(data []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)
}

func TestRecognizeSearchesTopLabel(t *testing.T) {
	fs, fake, _ := newFatSecretFixture(t)
	det := &stubLabels{labels: []string{"Sushi", "Food", "Rice"}}
	svc := NewFoodService(fs, det)

	rec, err := svc.Recognize(context.Background(), jpegURI([]byte("photo")))
	require.NoError(t, err)
	assert.Equal(t, []byte("photo"), det.got)
	assert.Equal(t, "Sushi", rec.Query)
	assert.Equal(t, []string{"Sushi", "Food", "Rice"}, rec.Labels)
	assert.JSONEq(t, `{"foods":{"food":[{"food_name":"Sushi"}]}}`, string(rec.Results))
	assert.Equal(t, []string{"Sushi"}, fake.searched())
}

func TestRecognizeWithoutLabels(t *testing.T) {
	fs, fake, _ := newFatSecretFixture(t)
	svc := NewFoodService(fs, &stubLabels{})

	_, err := svc.Recognize(context.Background(), jpegURI([]byte("photo")))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Zero(t, fake.calls())
}

func TestRecognizeRejectsBadImage(t *testing.T) {
	fs, _, _ := newFatSecretFixture(t)
	det := &stubLabels{labels: []string{"Sushi"}}
	svc := NewFoodService(fs, det)

	for _, uri := range []string{"", "not a data uri", "data:text/plain;base64,aGk=", "data:image/png;base64,@@@"} {
		_, err := svc.Recognize(context.Background(), uri)
		assert.True(t, errors.Is(err, ErrInvalidInput), uri)
	}
	assert.Nil(t, det.got)
}
