package voiceprint

import (
	"fmt"
	"strings"
)

// User-facing prompts returned in place of a result when input is missing.
const (
	MissingAudioPrompt = "请上传音频文件"
	MissingPairPrompt  = "请上传两个音频文件进行比较"
)

// CoarseHashBits is the precision of the coarse voice hash in reports.
const CoarseHashBits = 8

func extractionReport(info ModelInfo, x *Extraction) string {
	var b strings.Builder
	b.WriteString("**模型信息：**\n")
	fmt.Fprintf(&b, "- 模型名称: %s\n", info.Name)
	fmt.Fprintf(&b, "- 采样率: %d Hz\n", info.SampleRate)
	fmt.Fprintf(&b, "- 嵌入维度: %d\n", info.EmbeddingDim)
	fmt.Fprintf(&b, "- 处理状态: %s\n", info.Status)
	b.WriteString("\n**处理参数：**\n")
	fmt.Fprintf(&b, "- 窗口类型: %s\n", x.Window.Type)
	fmt.Fprintf(&b, "- 持续时间: %s\n", x.Window.DurationLabel())
	fmt.Fprintf(&b, "- 步长: %s\n", x.Window.StepLabel())
	if x.Windows > 0 {
		fmt.Fprintf(&b, "- 窗口数量: %d\n", x.Windows)
	}
	fmt.Fprintf(&b, "\n**音频文件：** %s\n", x.File)
	fmt.Fprintf(&b, "**嵌入向量形状：** (1, %d)\n", len(x.Embedding))
	if x.VoiceHash != "" {
		fmt.Fprintf(&b, "**声纹哈希：** %s (粗粒度 %s)\n", x.VoiceHash, TruncateHash(x.VoiceHash, CoarseHashBits))
	}
	if x.Speaker != nil {
		fmt.Fprintf(&b, "**说话人状态：** %s (置信度 %.2f)\n", x.Speaker.Status, x.Speaker.Confidence)
	}
	return b.String()
}

func comparisonReport(c *Comparison) string {
	var b strings.Builder
	b.WriteString("**说话人比较结果：**\n\n")
	fmt.Fprintf(&b, "**文件1：** %s\n", c.File1)
	fmt.Fprintf(&b, "**文件2：** %s\n\n", c.File2)
	fmt.Fprintf(&b, "**相似度：** %.4f (余弦相似度)\n", c.Similarity)
	fmt.Fprintf(&b, "**距离：** %.4f (余弦距离)\n\n", c.Distance)
	fmt.Fprintf(&b, "**判断：** %s\n", c.Verdict.Label())
	return b.String()
}
