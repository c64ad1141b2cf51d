package prompt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DeadliftSchema is the answer layout the model is asked to follow.
const DeadliftSchema = `{
  "overallScore": 85,
  "phases": {
    "setup": {
      "score": 80,
      "feedback": "Detailed feedback about setup phase",
      "strengths": ["What was done well"],
      "improvements": ["What needs work"]
    },
    "liftOff": {
      "score": 75,
      "feedback": "Detailed feedback about lift-off",
      "strengths": ["What was done well"],
      "improvements": ["What needs work"]
    },
    "midRange": {
      "score": 85,
      "feedback": "Detailed feedback about mid-range",
      "strengths": ["What was done well"],
      "improvements": ["What needs work"]
    },
    "lockout": {
      "score": 90,
      "feedback": "Detailed feedback about lockout",
      "strengths": ["What was done well"],
      "improvements": ["What needs work"]
    },
    "barPath": {
      "score": 70,
      "feedback": "Detailed feedback about bar path",
      "strengths": ["What was done well"],
      "improvements": ["What needs work"]
    }
  },
  "keyRecommendations": [
    "Most important recommendation 1",
    "Most important recommendation 2",
    "Most important recommendation 3"
  ],
  "practiceAreas": [
    "Specific drill or exercise 1",
    "Specific drill or exercise 2"
  ],
  "safetyNotes": [
    "Important safety consideration 1",
    "Important safety consideration 2"
  ]
}`

const DeadliftText = `Analyze this video of a person deadlifting. Consider Setup / lift off / mid range / lockout and bar path with extra recommendations and an overall score in a consumable JSON format.

Please provide your analysis in the following JSON structure:
` + DeadliftSchema

// Settings is the prompt plus the generation parameters sent with it.
type Settings struct {
	Text            string  `yaml:"text" json:"text"`
	Temperature     float32 `yaml:"temperature" json:"temperature"`
	TopK            int32   `yaml:"top_k" json:"top_k"`
	TopP            float32 `yaml:"top_p" json:"top_p"`
	MaxOutputTokens int32   `yaml:"max_output_tokens" json:"max_output_tokens"`
}

func Default() Settings {
	return Settings{
		Text:            DeadliftText,
		Temperature:     0.7,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: 2048,
	}
}

// Resolve returns custom when it is non-blank, otherwise the configured prompt text.
func (s Settings) Resolve(custom string) string {
	if strings.TrimSpace(custom) != "" {
		return custom
	}
	return s.Text
}

func (s Settings) Validate() error {
	if strings.TrimSpace(s.Text) == "" {
		return errors.New("prompt text is required")
	}
	if len(s.Text) > 64<<10 {
		return errors.New("prompt text too large (max 64 KiB)")
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		return fmt.Errorf("temperature %.2f out of range [0,2]", s.Temperature)
	}
	if s.TopP < 0 || s.TopP > 1 {
		return fmt.Errorf("top_p %.2f out of range [0,1]", s.TopP)
	}
	if s.TopK < 0 {
		return fmt.Errorf("top_k must not be negative")
	}
	if s.MaxOutputTokens <= 0 {
		return fmt.Errorf("max_output_tokens must be positive")
	}
	return nil
}

// Load reads a YAML settings file over the defaults. An empty path or a missing
// file yields the defaults.
func Load(path string) (Settings, error) {
	s := Default()
	if strings.TrimSpace(path) == "" {
		return s, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("read prompt file: %w", err)
	}
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Settings{}, fmt.Errorf("bad prompt file %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("prompt file %s: %w", path, err)
	}
	return s, nil
}

// Save writes s to path atomically: temp file in the same directory, then rename.
func Save(path string, s Settings) error {
	b, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("make dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp: %w", err)
	}
	_ = tmp.Chmod(0o644)
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// Store holds the active settings. Updates are persisted when a path is set.
type Store struct {
	mu   sync.RWMutex
	path string
	cur  Settings
}

func NewStore(path string, s Settings) *Store {
	return &Store{path: path, cur: s}
}

func (st *Store) Current() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.cur
}

func (st *Store) Path() string { return st.path }

func (st *Store) Update(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.path != "" {
		if err := Save(st.path, s); err != nil {
			return err
		}
	}
	st.cur = s
	return nil
}
