package config

const (
	defaultCapturesDir   = "~/.local/share/clipmark/captures"
	defaultTemplatesDir  = "~/.config/clipmark/templates"
	defaultStateDir      = "~/.local/share/clipmark/state"
	defaultOBSHost       = "localhost"
	defaultOBSPort       = 4455
	defaultCaptureSource = "Capture1"
	defaultTextSource    = "scoreText1"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"

	defaultMatcherImplementation = "software"

	// Match confidence defaults were hand-tuned against a specific game UI;
	// they are starting points, not derived values.
	defaultStartThreshold   = 0.4
	defaultStopThreshold    = 0.4
	defaultOutcomeThreshold = 0.2

	defaultRecordingPollMS  = 1000
	defaultConfirmAttempts  = 5
	defaultConfirmDelayMS   = 1000
	defaultGuardSeconds     = 140
	defaultOutcomePollMS    = 500
	defaultAssocPollMS      = 200
	defaultToleranceSeconds = 20
	defaultDebounceMS       = 50
	defaultEnqueueTimeoutMS = 100
	defaultEventBuffer      = 64
	defaultPairingMarginSec = 20
)

func defaultPairingExtensions() []string {
	return []string{".mkv", ".mp4", ".mov", ".flv"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CapturesDir:  defaultCapturesDir,
			TemplatesDir: defaultTemplatesDir,
			StateDir:     defaultStateDir,
		},
		OBS: OBS{
			Host:          defaultOBSHost,
			Port:          defaultOBSPort,
			CaptureSource: defaultCaptureSource,
			TextSource:    defaultTextSource,
		},
		Matcher: Matcher{
			Implementation: defaultMatcherImplementation,
			Grayscale:      true,
		},
		Recording: Recording{
			StartTemplate:   "start.png",
			StopTemplate:    "stop.png",
			StartThreshold:  defaultStartThreshold,
			StopThreshold:   defaultStopThreshold,
			PollIntervalMS:  defaultRecordingPollMS,
			ConfirmAttempts: defaultConfirmAttempts,
			ConfirmDelayMS:  defaultConfirmDelayMS,
			GuardSeconds:    defaultGuardSeconds,
			AssumeStart:     false,
		},
		Outcomes: Outcomes{
			PollIntervalMS: defaultOutcomePollMS,
			Win:            OutcomeRegion{Template: "win.png", Threshold: defaultOutcomeThreshold},
			Lose:           OutcomeRegion{Template: "lose.png", Threshold: defaultOutcomeThreshold},
			Disconnect:     OutcomeRegion{Template: "disconnect.png", Threshold: defaultOutcomeThreshold},
		},
		Association: Association{
			PollIntervalMS:     defaultAssocPollMS,
			ToleranceSeconds:   defaultToleranceSeconds,
			DefaultWinTimeout:  0,
			DebounceMS:         defaultDebounceMS,
			EnqueueTimeoutMS:   defaultEnqueueTimeoutMS,
			EventBufferEntries: defaultEventBuffer,
		},
		Pairing: Pairing{
			Extensions:    defaultPairingExtensions(),
			MarginSeconds: defaultPairingMarginSec,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
