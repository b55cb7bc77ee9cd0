package opencv

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"camclassify/internal/config"
	"camclassify/internal/logger"
	"camclassify/internal/models"
	"camclassify/internal/service/ai"

	"gocv.io/x/gocv"
)

// ClassifierService runs the model with the OpenCV DNN module.
type ClassifierService struct {
	modelPath  string
	configPath string
	cacheDir   string
	inputSize  int
	net        gocv.Net
	loaded     bool
	mu         sync.Mutex
	logger     *logger.Logger
}

// NewClassifierService creates a classifier. The model is not read until LoadModel.
func NewClassifierService(cfg *config.Config, logger *logger.Logger) *ClassifierService {
	return &ClassifierService{
		modelPath:  cfg.ModelPath,
		configPath: cfg.ModelConfigPath,
		cacheDir:   cfg.ModelCacheDirectory,
		inputSize:  cfg.InputSize,
		logger:     logger,
	}
}

// LoadModel reads the network from a local path or downloads it first when
// the model path is an http(s) URL.
func (s *ClassifierService) LoadModel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return nil
	}

	modelPath, err := s.resolve(ctx, s.modelPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ai.ErrModelLoad, err)
	}
	configPath := ""
	if s.configPath != "" {
		if configPath, err = s.resolve(ctx, s.configPath); err != nil {
			return fmt.Errorf("%w: %v", ai.ErrModelLoad, err)
		}
	}

	net := gocv.ReadNet(modelPath, configPath)
	if net.Empty() {
		return fmt.Errorf("%w: failed to load network from %s", ai.ErrModelLoad, modelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("%w: failed to set preferable backend or target", ai.ErrModelLoad)
	}

	s.net = net
	s.loaded = true
	s.logger.Info("Classification model loaded from %s", modelPath)
	return nil
}

// resolve returns a local file path for location, downloading remote files
// into the cache directory once.
func (s *ClassifierService) resolve(ctx context.Context, location string) (string, error) {
	if !isRemote(location) {
		if _, err := os.Stat(location); err != nil {
			return "", fmt.Errorf("model file not found: %s", location)
		}
		return location, nil
	}

	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("invalid model url: %w", err)
	}

	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		name = "model"
	}
	local := filepath.Join(s.cacheDir, name)
	if _, err := os.Stat(local); err == nil {
		return local, nil
	}

	if err := os.MkdirAll(s.cacheDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create model cache: %w", err)
	}

	s.logger.Info("Downloading model from %s", location)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download model: %s", resp.Status)
	}

	tmp, err := os.CreateTemp(s.cacheDir, name+".*.part")
	if err != nil {
		return "", fmt.Errorf("failed to create model file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write model file: %w", err)
	}
	if err := os.Rename(tmp.Name(), local); err != nil {
		return "", fmt.Errorf("failed to store model file: %w", err)
	}

	return local, nil
}

// Classify runs one forward pass. Calls are serialized because a gocv.Net
// is not safe for concurrent use.
func (s *ClassifierService) Classify(ctx context.Context, t *ai.Tensor) (models.Probabilities, error) {
	if err := ctx.Err(); err != nil {
		return models.Probabilities{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return models.Probabilities{}, fmt.Errorf("%w: model not loaded", ai.ErrInference)
	}
	if t == nil || t.Size != s.inputSize {
		return models.Probabilities{}, fmt.Errorf("%w: unexpected input tensor", ai.ErrInference)
	}

	blob, err := gocv.NewMatWithSizesFromBytes([]int{1, ai.Channels, t.Size, t.Size}, gocv.MatTypeCV32F, toNCHW(t))
	if err != nil {
		return models.Probabilities{}, fmt.Errorf("%w: failed to build input blob: %v", ai.ErrInference, err)
	}
	defer blob.Close()

	s.net.SetInput(blob, "")

	output := s.net.Forward("")
	defer output.Close()

	if output.Empty() {
		return models.Probabilities{}, fmt.Errorf("%w: empty network output", ai.ErrInference)
	}

	data, err := output.DataPtrFloat32()
	if err != nil {
		return models.Probabilities{}, fmt.Errorf("%w: failed to read network output: %v", ai.ErrInference, err)
	}
	// data aliases the Mat buffer, which is freed on return
	out := make([]float32, len(data))
	copy(out, data)

	return ai.ProbabilitiesFromOutput(out)
}

// toNCHW reorders the NHWC tensor into the channel-major layout OpenCV expects.
func toNCHW(t *ai.Tensor) []byte {
	plane := t.Size * t.Size
	buf := make([]byte, plane*ai.Channels*4)
	for i := 0; i < plane; i++ {
		for c := 0; c < ai.Channels; c++ {
			v := t.Data[i*ai.Channels+c]
			binary.LittleEndian.PutUint32(buf[(c*plane+i)*4:], math.Float32bits(v))
		}
	}
	return buf
}

// Close releases the network.
func (s *ClassifierService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		s.loaded = false
		return s.net.Close()
	}
	return nil
}

// isRemote reports whether location names an http(s) resource.
func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}
