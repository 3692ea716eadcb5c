package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bist-returns/internal/alerting"
	"bist-returns/pkg/id"
)

// SimulateAlert 发送一条测试告警, 验证通道配置是否可用。
func (a *App) SimulateAlert(ctx context.Context, kind, detail string) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting 未启用")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	if kind != alerting.KindDegraded && kind != alerting.KindFatal {
		return fmt.Errorf("未知告警类型: %s", kind)
	}

	note := alerting.Notification{
		RunID:  id.NewRunID(),
		AsOf:   time.Now(),
		Kind:   kind,
		Detail: detail,
	}

	if err := notifier.Notify(ctx, note); err != nil {
		return err
	}

	a.Logger.Info().Str("kind", kind).Msg("模拟告警已发送")
	return nil
}
