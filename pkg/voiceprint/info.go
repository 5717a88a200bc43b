package voiceprint

// ModelInfo is the static description of the embedding model. It is
// created once at process start and never mutated.
type ModelInfo struct {
	Name         string `json:"model_name" yaml:"model_name" msgpack:"model_name"`
	Description  string `json:"description" yaml:"description" msgpack:"description"`
	SampleRate   int    `json:"sample_rate" yaml:"sample_rate" msgpack:"sample_rate"`
	EmbeddingDim int    `json:"embedding_dim" yaml:"embedding_dim" msgpack:"embedding_dim"`
	Status       string `json:"status" yaml:"status" msgpack:"status"`

	// Detail shown on the model information tab.
	Architecture string   `json:"architecture" yaml:"architecture" msgpack:"architecture"`
	Dataset      string   `json:"dataset" yaml:"dataset" msgpack:"dataset"`
	Features     []string `json:"features" yaml:"features" msgpack:"features"`
	UseCases     []string `json:"use_cases" yaml:"use_cases" msgpack:"use_cases"`
}

// InfoProvider supplies model metadata.
type InfoProvider interface {
	ModelInfo() ModelInfo
}

// StaticInfo is an InfoProvider over a fixed record.
type StaticInfo struct {
	info ModelInfo
}

// NewStaticInfo returns a provider that always reports info.
func NewStaticInfo(info ModelInfo) *StaticInfo {
	info.Features = append([]string(nil), info.Features...)
	info.UseCases = append([]string(nil), info.UseCases...)
	return &StaticInfo{info: info}
}

// ModelInfo implements [InfoProvider]. The returned slices are copies.
func (s *StaticInfo) ModelInfo() ModelInfo {
	info := s.info
	info.Features = append([]string(nil), s.info.Features...)
	info.UseCases = append([]string(nil), s.info.UseCases...)
	return info
}

// DefaultModelInfo describes the WeSpeaker VoxCeleb ResNet34-LM model.
func DefaultModelInfo() ModelInfo {
	return ModelInfo{
		Name:         "wespeaker-voxceleb-resnet34-LM",
		Description:  "WeSpeaker ResNet34 说话人嵌入模型，基于 VoxCeleb 数据集训练",
		SampleRate:   16000,
		EmbeddingDim: 256,
		Status:       "模型已加载",
		Architecture: "ResNet34",
		Dataset:      "VoxCeleb",
		Features: []string{
			"基于深度残差网络的说话人嵌入提取",
			"支持全窗口和滑动窗口两种提取模式",
			"可用于说话人识别、验证和聚类任务",
			"兼容 pyannote.audio 框架",
		},
		UseCases: []string{
			"说话人识别：识别音频中的说话人身份",
			"说话人验证：验证两个音频是否来自同一说话人",
			"说话人聚类：对多个音频进行说话人分组",
		},
	}
}
