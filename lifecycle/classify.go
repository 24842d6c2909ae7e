package lifecycle

import (
	"fmt"
	"strconv"
	"strings"
)

// Upload is one raw multipart item handed to AttachMedia.
type Upload struct {
	Filename string
	Data     []byte
}

// SnapshotPlan is a snapshot upload after classification. QuestionID is zero
// for orphans, which are stored but never associated with a response.
type SnapshotPlan struct {
	Upload     Upload
	QuestionID uint
}

// MediaPlan separates the classification decision from the storage side
// effects that follow it.
type MediaPlan struct {
	Video     Upload
	Snapshots []SnapshotPlan
	// Skipped records per-item classification failures; they do not abort
	// the surrounding request.
	Skipped []string
}

// ClassifyUploads maps the session video and each snapshot into
// {video, snapshot-with-question-id, orphan} before anything is written.
// Snapshot names of the form q_<questionId>.<ext> associate with that
// question; a q_-prefixed name whose id is not an integer is reported and
// the snapshot is kept as an orphan.
func ClassifyUploads(video Upload, snapshots []Upload) MediaPlan {
	plan := MediaPlan{Video: video}
	for _, snap := range snapshots {
		qid, err := questionIDFromFilename(snap.Filename)
		if err != nil {
			plan.Skipped = append(plan.Skipped, fmt.Sprintf("%s: %v", snap.Filename, err))
			qid = 0
		}
		plan.Snapshots = append(plan.Snapshots, SnapshotPlan{Upload: snap, QuestionID: qid})
	}
	return plan
}

// questionIDFromFilename parses the q_<id> prefix convention. It returns
// (0, nil) for names that do not follow the convention at all.
func questionIDFromFilename(name string) (uint, error) {
	if !strings.HasPrefix(name, "q_") {
		return 0, nil
	}
	rest := strings.TrimPrefix(name, "q_")
	if i := strings.IndexAny(rest, "_."); i >= 0 {
		rest = rest[:i]
	}
	id, err := strconv.ParseUint(rest, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%q is not a valid question id", rest)
	}
	return uint(id), nil
}
