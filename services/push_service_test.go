package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"dietica/logger"
	"dietica/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	mu        sync.Mutex
	endpoints int
	published []*awssns.PublishInput
	err       error
}

func (f *fakeSNS) CreatePlatformEndpoint(_ context.Context, in *awssns.CreatePlatformEndpointInput, _ ...func(*awssns.Options)) (*awssns.CreatePlatformEndpointOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endpoints++
	return &awssns.CreatePlatformEndpointOutput{EndpointArn: aws.String("arn:endpoint:" + aws.ToString(in.Token))}, nil
}

func (f *fakeSNS) Publish(_ context.Context, in *awssns.PublishInput, _ ...func(*awssns.Options)) (*awssns.PublishOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.published = append(f.published, in)
	return &awssns.PublishOutput{}, nil
}

func TestRegisterDeviceUpserts(t *testing.T) {
	db := newTestDB(t)
	sns := &fakeSNS{}
	svc := NewPushService(db, sns, "arn:app/fcm", logger.Discard())
	ctx := context.Background()

	first, err := svc.RegisterDevice(ctx, 1, RegisterDeviceReq{Platform: "Android", Token: "tok-1"})
	require.NoError(t, err)
	assert.Equal(t, "android", first.Platform)
	assert.Equal(t, "arn:endpoint:tok-1", first.EndpointARN)
	assert.True(t, first.Enabled)

	again, err := svc.RegisterDevice(ctx, 1, RegisterDeviceReq{Platform: "android", Token: "tok-1"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	var n int64
	require.NoError(t, db.Model(&models.UserDevice{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	_, err = svc.RegisterDevice(ctx, 1, RegisterDeviceReq{Platform: "windows", Token: "tok-2"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestOptOutCarriesToNewDevices(t *testing.T) {
	db := newTestDB(t)
	svc := NewPushService(db, &fakeSNS{}, "arn:app/fcm", logger.Discard())
	ctx := context.Background()

	_, err := svc.RegisterDevice(ctx, 1, RegisterDeviceReq{Platform: "ios", Token: "phone"})
	require.NoError(t, err)
	require.NoError(t, svc.SetNotifications(ctx, 1, false))

	tablet, err := svc.RegisterDevice(ctx, 1, RegisterDeviceReq{Platform: "ios", Token: "tablet"})
	require.NoError(t, err)
	assert.False(t, tablet.Enabled)

	var enabled int64
	require.NoError(t, db.Model(&models.UserDevice{}).Where("enabled = ?", true).Count(&enabled).Error)
	assert.Zero(t, enabled)
}

func TestSendPublishesGCMPayload(t *testing.T) {
	sns := &fakeSNS{}
	svc := NewPushService(newTestDB(t), sns, "arn:app/fcm", logger.Discard())

	require.NoError(t, svc.Send(context.Background(), "arn:endpoint:x", "Hydrate", "Drink water"))
	require.Len(t, sns.published, 1)
	in := sns.published[0]
	assert.Equal(t, "arn:endpoint:x", aws.ToString(in.TargetArn))
	assert.Equal(t, "json", aws.ToString(in.MessageStructure))

	var envelope map[string]string
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.Message)), &envelope))
	assert.Equal(t, "Drink water", envelope["default"])
	assert.Contains(t, envelope["GCM"], `"title":"Hydrate"`)

	sns.err = errors.New("endpoint disabled")
	assert.ErrorIs(t, svc.Send(context.Background(), "arn:endpoint:x", "a", "b"), ErrTransport)
}
