package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/wespeaker/pkg/cli"
	"github.com/haivivi/wespeaker/pkg/voiceprint"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show model information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := voiceprint.NewStaticInfo(voiceprint.DefaultModelInfo()).ModelInfo()
		return outputResult(cmd.OutOrStdout(), info, infoCard(info).Render(0))
	},
}

func infoCard(info voiceprint.ModelInfo) cli.Card {
	return cli.Card{
		Styles: cli.NewStyles(cli.DefaultTheme),
		Title:  info.Name,
		Status: info.Status,
		Sections: []cli.Section{
			{
				Fields: []cli.Field{
					{Key: "描述", Value: info.Description},
					{Key: "模型架构", Value: info.Architecture},
					{Key: "训练数据", Value: info.Dataset},
					{Key: "采样率", Value: fmt.Sprintf("%d Hz", info.SampleRate)},
					{Key: "嵌入维度", Value: fmt.Sprint(info.EmbeddingDim)},
				},
			},
			{Label: "功能特点", Items: info.Features},
			{Label: "应用场景", Items: info.UseCases},
			{
				Label: "判断规则",
				Fields: []cli.Field{
					{Key: "阈值", Value: fmt.Sprintf("相似度 > %.1f 为同一说话人", voiceprint.Threshold)},
					{Key: "距离", Value: "1 - 相似度"},
				},
			},
		},
		Footer: "wespeaker " + version,
	}
}
