package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyUploads(t *testing.T) {
	video := Upload{Filename: "session.webm", Data: []byte("video")}
	snapshots := []Upload{
		{Filename: "q_12.png", Data: []byte("a")},
		{Filename: "q_7_retake.png", Data: []byte("b")},
		{Filename: "selfie.png", Data: []byte("c")},
		{Filename: "q_abc.png", Data: []byte("d")},
	}

	plan := ClassifyUploads(video, snapshots)

	assert.Equal(t, video, plan.Video)
	assert.Len(t, plan.Snapshots, 4)
	assert.Equal(t, uint(12), plan.Snapshots[0].QuestionID)
	assert.Equal(t, uint(7), plan.Snapshots[1].QuestionID)
	assert.Equal(t, uint(0), plan.Snapshots[2].QuestionID)
	assert.Equal(t, uint(0), plan.Snapshots[3].QuestionID)

	// Only the malformed q_ name is a reported skip; plain names are just
	// orphans.
	assert.Len(t, plan.Skipped, 1)
	assert.Contains(t, plan.Skipped[0], "q_abc.png")
}

func TestQuestionIDFromFilename(t *testing.T) {
	tests := []struct {
		name    string
		id      uint
		wantErr bool
	}{
		{"q_1.png", 1, false},
		{"q_42.jpeg", 42, false},
		{"q_3_extra.png", 3, false},
		{"snapshot.png", 0, false},
		{"q_x.png", 0, true},
		{"q_.png", 0, true},
		{"q_0.png", 0, true},
	}
	for _, tt := range tests {
		id, err := questionIDFromFilename(tt.name)
		if tt.wantErr {
			assert.Error(t, err, tt.name)
		} else {
			assert.NoError(t, err, tt.name)
		}
		assert.Equal(t, tt.id, id, tt.name)
	}
}
