package convert

import (
	"github.com/feichai0017/pdf2md/internal/agent/document"
	"github.com/feichai0017/pdf2md/internal/models"
	"github.com/feichai0017/pdf2md/pkg/logger"
)

// Candidate option names per intent, most preferred first. Loaders built
// against different extraction backends name the same knob differently.
var (
	ocrOptionNames      = []string{"ocr", "use_ocr", "enable_ocr"}
	engineOptionNames   = []string{"ocr_engine", "ocr_provider", "engine"}
	languageOptionNames = []string{"ocr_lang", "ocr_langs", "lang", "language"}
	dpiOptionNames      = []string{"dpi", "ocr_dpi"}
)

// acceptedOptions asks the loader once which option names it takes. A nil
// set means discovery was impossible or failed.
func (s *ConvertService) acceptedOptions() map[string]bool {
	s.optionsOnce.Do(func() {
		describer, ok := s.loader.(document.OptionDescriber)
		if !ok {
			s.logger.Debug("Loader does not describe its options")
			return
		}

		names, err := describer.AcceptedOptions()
		if err != nil {
			s.logger.Warn("Option discovery failed", logger.Error(err))
			return
		}

		s.accepted = make(map[string]bool, len(names))
		for _, name := range names {
			s.accepted[name] = true
		}
	})
	return s.accepted
}

func firstAccepted(accepted map[string]bool, candidates []string) (string, bool) {
	for _, name := range candidates {
		if accepted[name] {
			return name, true
		}
	}
	return "", false
}

// ConfigureExtractor maps OCR intents onto the option names the loader
// accepts. EngineNone yields empty options, which means plain extraction.
func (s *ConvertService) ConfigureExtractor(source string, engine models.Engine, language string) document.Options {
	opts := document.Options{}
	if engine == models.EngineNone {
		return opts
	}
	if language == "" {
		language = DefaultLanguage
	}

	accepted := s.acceptedOptions()
	if accepted == nil {
		return opts
	}

	set := func(candidates []string, value interface{}) {
		if name, ok := firstAccepted(accepted, candidates); ok {
			opts[name] = value
		}
	}
	set(ocrOptionNames, true)
	set(engineOptionNames, string(engine))
	set(languageOptionNames, language)
	set(dpiOptionNames, s.config.DPI)

	s.logger.Debug("Extractor configured",
		logger.String("source", source),
		logger.String("engine", engine.String()),
		logger.Any("options", opts),
	)
	return opts
}
