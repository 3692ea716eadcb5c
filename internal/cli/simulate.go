package cli

import (
	"github.com/spf13/cobra"
)

var (
	simulateKind   string
	simulateDetail string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "发送一条测试告警以验证通道配置",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SimulateAlert(cmd.Context(), simulateKind, simulateDetail)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateKind, "kind", "degraded", "告警类型 (degraded 或 fatal)")
	simulateCmd.Flags().StringVar(&simulateDetail, "detail", "simulated alert", "告警正文")
}
