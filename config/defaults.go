package config

const (
	defaultDataDir     = "~/slideshow-compositor-data"
	defaultServerPort  = 8080
	defaultEnvironment = "development"
	defaultPollSeconds = 5

	defaultOrientation      = "vertical"
	defaultVerticalWidth    = 1080
	defaultVerticalHeight   = 1920
	defaultHorizontalWidth  = 1920
	defaultHorizontalHeight = 1080
	defaultFPS              = 25
	defaultSegmentDuration  = 6.0
	defaultTimeLimit        = 600.0
	defaultCRF              = 22
	defaultPreset           = "medium"
	defaultFFmpegBinary     = "ffmpeg"
	defaultScriptThreshold  = 100000
	defaultOutroVertical    = "outro_vertical.mp4"
	defaultOutroHorizontal  = "outro_horizontal.mp4"

	defaultTransitionDuration = 0.5

	defaultWatermarkFontSize = 40
	defaultWatermarkColor    = "white"
	defaultWatermarkOpacity  = 0.7
	defaultWatermarkSpeed    = 50
	defaultWatermarkStyle    = "ccw"

	defaultParallaxBinary  = "depthflow"
	defaultParallaxWorkers = 2
	defaultMinEffects      = 2
	defaultMaxEffects      = 4
	defaultZoomProbability = 0.3
	defaultIsometricMin    = 0.4
	defaultIsometricMax    = 0.5
	defaultHeightMin       = 0.1
	defaultHeightMax       = 0.15
	defaultRenderHeight    = 1920

	defaultSoundtrackVolume = 1.0
	defaultFadeDuration     = 3.0
	defaultVoiceoverDelay   = 5.0
	defaultStabVolume       = 2.0
	defaultStabFile         = "base_transition_500ms.mp3"
	defaultSampleRate       = 44100
	defaultAudioBitrate     = "192k"
	defaultSidechainRatio   = 3.0
	defaultSidechainThresh  = 0.02
	defaultSidechainAttack  = 20.0
	defaultSidechainRelease = 500.0

	defaultChromakeyColor      = "65db41"
	defaultChromakeySimilarity = 0.18
	defaultSubscribeDelay      = 21.0
	defaultSubscribeVolume     = 0.5
	defaultSubscribeVertical   = "name_subscribe_like.mp4"
	defaultSubscribeHorizontal = "name_subscribe_like_horizontal.mp4"

	defaultTitleFont       = "Montserrat-SemiBold.otf"
	defaultTitleFontSize   = 90
	defaultTitleColor      = "FFFFFF"
	defaultTitleAppearance = 1.0
	defaultTitleVisible    = 5.0
	defaultTitleXOffset    = 110
	defaultTitleYOffset    = -35
	defaultTitleOpacity    = 0.8
	defaultTitleBoxColor   = "000000"
	defaultTitleBoxOpacity = 0.5
	defaultTitleBoxBorder  = 20

	defaultEffectOpacity   = 0.2
	defaultEffectBlendMode = "overlay"

	defaultWhisperBinary    = "whisper"
	defaultWhisperModel     = "base"
	defaultSubtitleFont     = "Arial"
	defaultSubtitleFontSize = 24
	defaultSubtitleColor    = "FFFFFF"
	defaultOutlineColor     = "000000"
	defaultShadowColor      = "000000"
	defaultOutlineThickness = 1
	defaultSubtitleAlign    = 2
	defaultShadowOpacity    = 0.5
	defaultMaxLineWidth     = 42
	defaultSubtitleMargin   = 10

	defaultOutroFallback   = 14.0
	defaultOverlayFallback = 23.0

	defaultLogFormat = "auto"
	defaultLogLevel  = "info"
)

var defaultTransitionTypes = []string{"hblur", "smoothup", "horzopen", "circleopen", "diagtr", "diagbl"}

func defaultParallaxPresets() []ParallaxPreset {
	return []ParallaxPreset{
		{Name: "Circle", MinIntensity: 0.3, MaxIntensity: 0.5},
		{Name: "Orbital", MinIntensity: 0.3, MaxIntensity: 0.5},
		{Name: "Dolly", MinIntensity: 0.2, MaxIntensity: 0.4},
		{Name: "Horizontal", MinIntensity: 0.2, MaxIntensity: 0.4},
		{Name: "Vertical", MinIntensity: 0.2, MaxIntensity: 0.4},
		{Name: "Zoom", MinIntensity: 0.15, MaxIntensity: 0.25},
	}
}

// Default returns a configuration populated with the built-in defaults.
func Default() Config {
	return Config{
		Paths: Paths{DataDir: defaultDataDir},
		Server: Server{
			Port:                defaultServerPort,
			Environment:         defaultEnvironment,
			PollIntervalSeconds: defaultPollSeconds,
		},
		Video: Video{
			Orientation:      defaultOrientation,
			VerticalWidth:    defaultVerticalWidth,
			VerticalHeight:   defaultVerticalHeight,
			HorizontalWidth:  defaultHorizontalWidth,
			HorizontalHeight: defaultHorizontalHeight,
			FPS:              defaultFPS,
			SegmentDuration:  defaultSegmentDuration,
			TimeLimit:        defaultTimeLimit,
			CRF:              defaultCRF,
			Preset:           defaultPreset,
			FFmpegBinary:     defaultFFmpegBinary,
			ScriptThreshold:  defaultScriptThreshold,
			OutroVertical:    defaultOutroVertical,
			OutroHorizontal:  defaultOutroHorizontal,
		},
		Transitions: Transitions{
			Duration: defaultTransitionDuration,
			Types:    append([]string(nil), defaultTransitionTypes...),
		},
		Watermark: Watermark{
			FontSize:  defaultWatermarkFontSize,
			FontColor: defaultWatermarkColor,
			Opacity:   defaultWatermarkOpacity,
			Speed:     defaultWatermarkSpeed,
			Style:     defaultWatermarkStyle,
		},
		Parallax: Parallax{
			Binary:          defaultParallaxBinary,
			Workers:         defaultParallaxWorkers,
			MinEffects:      defaultMinEffects,
			MaxEffects:      defaultMaxEffects,
			ZoomProbability: defaultZoomProbability,
			IsometricMin:    defaultIsometricMin,
			IsometricMax:    defaultIsometricMax,
			HeightMin:       defaultHeightMin,
			HeightMax:       defaultHeightMax,
			RenderHeight:    defaultRenderHeight,
			Vignette:        true,
			DepthOfField:    true,
			Presets:         defaultParallaxPresets(),
		},
		Audio: Audio{
			SoundtrackVolume: defaultSoundtrackVolume,
			FadeDuration:     defaultFadeDuration,
			VoiceoverDelay:   defaultVoiceoverDelay,
			StabVolume:       defaultStabVolume,
			StabFile:         defaultStabFile,
			SampleRate:       defaultSampleRate,
			Bitrate:          defaultAudioBitrate,
			SidechainRatio:   defaultSidechainRatio,
			SidechainThresh:  defaultSidechainThresh,
			SidechainAttack:  defaultSidechainAttack,
			SidechainRelease: defaultSidechainRelease,
		},
		SubscribeOverlay: SubscribeOverlay{
			Enabled:        true,
			VerticalFile:   defaultSubscribeVertical,
			HorizontalFile: defaultSubscribeHorizontal,
			Delay:          defaultSubscribeDelay,
			Volume:         defaultSubscribeVolume,
			Chromakey: Chromakey{
				Color:      defaultChromakeyColor,
				Similarity: defaultChromakeySimilarity,
			},
		},
		TitleVideoOverlay: TitleVideoOverlay{
			Chromakey: Chromakey{
				Color:      defaultChromakeyColor,
				Similarity: defaultChromakeySimilarity,
			},
		},
		Title: Title{
			Enabled:           true,
			FontFile:          defaultTitleFont,
			FontSize:          defaultTitleFontSize,
			FontColor:         defaultTitleColor,
			AppearanceDelay:   defaultTitleAppearance,
			VisibleDuration:   defaultTitleVisible,
			XOffset:           defaultTitleXOffset,
			YOffset:           defaultTitleYOffset,
			Opacity:           defaultTitleOpacity,
			BackgroundColor:   defaultTitleBoxColor,
			BackgroundOpacity: defaultTitleBoxOpacity,
			BackgroundBorder:  defaultTitleBoxBorder,
		},
		Effects: Effects{
			Opacity:   defaultEffectOpacity,
			BlendMode: defaultEffectBlendMode,
		},
		Subtitles: Subtitles{
			WhisperBinary:    defaultWhisperBinary,
			Model:            defaultWhisperModel,
			FontName:         defaultSubtitleFont,
			FontSize:         defaultSubtitleFontSize,
			FontColor:        defaultSubtitleColor,
			OutlineColor:     defaultOutlineColor,
			ShadowColor:      defaultShadowColor,
			OutlineThickness: defaultOutlineThickness,
			Alignment:        defaultSubtitleAlign,
			ShadowEnabled:    true,
			ShadowOpacity:    defaultShadowOpacity,
			MaxLineWidth:     defaultMaxLineWidth,
			MarginL:          defaultSubtitleMargin,
			MarginR:          defaultSubtitleMargin,
			MarginV:          defaultSubtitleMargin,
		},
		Probe: Probe{
			OutroFallback:   defaultOutroFallback,
			OverlayFallback: defaultOverlayFallback,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
