package slack_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"mealprep/schedule"
	"mealprep/slack"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"
)

type mockDoer struct {
	resp   *http.Response
	err    error
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockDoer) Do(req *http.Request) (*http.Response, error) {
	if m.doFunc != nil {
		return m.doFunc(req)
	}
	return m.resp, m.err
}

func TestNewClient(t *testing.T) {
	webhook := "http://slack.com/webhook"
	client := slack.NewClient(webhook, &mockDoer{})
	must.NotNil(t, client, "expected non-nil client")
}

func TestPostMessage(t *testing.T) {
	tests := []struct {
		name    string
		doFunc  func(req *http.Request) (*http.Response, error)
		wantErr error
	}{
		{
			name: "success",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewBufferString("ok"))}, nil
			},
			wantErr: nil,
		},
		{
			name: "failure status",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusBadRequest, Status: "400 Bad Request", Body: io.NopCloser(bytes.NewBufferString("bad request"))}, nil
			},
			wantErr: fmt.Errorf("failed to post message: 400 Bad Request"),
		},
		{
			name: "do error",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("network error")
			},
			wantErr: fmt.Errorf("network error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := slack.NewClient("http://example.com/webhook", &mockDoer{doFunc: tt.doFunc})
			err := client.PostMessage(context.Background(), "#general", "Hello, world!")
			should.Equal(t, tt.wantErr, err)
		})
	}
}

func timeline() schedule.Timeline {
	done := 12
	return schedule.Timeline{
		Steps: []schedule.Step{
			{ID: "mise:chop:vegetable:1", Kind: schedule.KindMiseEnPlace, RecipeIDs: []string{"curry", "soup"}, Action: "chop", Duration: 12, Completed: true, CompletedOffset: &done},
			{ID: "soup#2", Kind: schedule.KindRecipeInstruction, RecipeIDs: []string{"soup"}, Action: "bake", StartOffset: 75, Duration: 30, Equipment: []string{"oven"}},
		},
		Conflicts: []schedule.ResourceConflict{
			{Equipment: "oven", Capacity: 1, StepIDs: []string{"curry#3", "soup#2"}, StartOffset: 75, EndOffset: 90, Severity: schedule.SeverityAdvisory},
		},
		TotalMinutes: 105,
	}
}

func TestFormatTimeline(t *testing.T) {
	got := slack.FormatTimeline("Sunday prep", timeline())
	should.Equal(t, "*Sunday prep* (1:45 total)\n"+
		"✓ `0:00` chop curry + soup _(shared prep)_ 12m\n"+
		"• `1:15` bake soup 30m [oven]\n"+
		":warning: 1 equipment conflict(s)\n"+
		"  oven (advisory) 1:15-1:30: curry#3, soup#2\n", got)
}

func TestFormatConflicts_None(t *testing.T) {
	should.Empty(t, slack.FormatConflicts(nil))
}

func TestPostTimeline(t *testing.T) {
	var body map[string]any
	client := slack.NewClient("http://example.com/webhook", &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
		must.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewBufferString("ok"))}, nil
	}})

	must.NoError(t, client.PostTimeline(context.Background(), "#kitchen", "Sunday prep", timeline()))
	should.Equal(t, "#kitchen", body["channel"])
	should.Contains(t, body["text"], "bake soup 30m [oven]")
}
