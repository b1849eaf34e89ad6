// Package meetingsvc hands out meeting references for paid sessions. The core
// only stores the id/link pair; the meeting's own lifecycle is someone else's
// problem.
package meetingsvc

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mutqin/backend/core"
	"github.com/mutqin/backend/core/session"
)

type provider struct {
	baseURL string
}

var _ session.MeetingProvider = (*provider)(nil)

func NewProvider(conf *core.Config) session.MeetingProvider {
	return &provider{baseURL: conf.MeetingBaseURL}
}

func (p *provider) CreateMeeting(ctx context.Context, sessionID string) (string, string, error) {
	id := uuid.New().String()
	return id, fmt.Sprintf("%s/m/%s", p.baseURL, id), nil
}
