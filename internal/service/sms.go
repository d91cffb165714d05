package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/matrimony-api/internal/utils"
)

// LogSMSSender stands in for an SMS gateway during development.  It logs
// the masked number only; the code itself never reaches the log.
type LogSMSSender struct{ Log *zap.Logger }

func (s LogSMSSender) SendLoginCode(_ context.Context, mobile, _ string) error {
	if s.Log != nil {
		s.Log.Info("login code issued", zap.String("mobile", utils.MaskMobile(mobile)))
	}
	return nil
}
