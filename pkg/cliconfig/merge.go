package cliconfig

// MergeConfig merges source config into target, updating sources tracking.
// Only non-zero values from source are applied, except for keys listed in
// source.SetFields, which are applied even when zero.
func MergeConfig(target, source *Config, sourceType string) {
	if source == nil {
		return
	}
	if target.Sources == nil {
		target.Sources = make(map[string]string)
	}

	mergeString := func(key string, dst *string, src string) {
		if src != "" || isSet(source, key) {
			*dst = src
			target.Sources[key] = sourceType
		}
	}

	mergeString("host", &target.Host, source.Host)
	if source.Port != 0 {
		target.Port = source.Port
		target.Sources["port"] = sourceType
	}
	mergeString("metricsPath", &target.MetricsPath, source.MetricsPath)
	mergeString("healthPath", &target.HealthPath, source.HealthPath)
	mergeString("prefix", &target.Prefix, source.Prefix)
	mergeString("watchDir", &target.WatchDir, source.WatchDir)
	mergeString("runtimeSchedule", &target.RuntimeSchedule, source.RuntimeSchedule)
	mergeString("logLevel", &target.LogLevel, source.LogLevel)
	mergeString("logFormat", &target.LogFormat, source.LogFormat)
	mergeString("logFile", &target.LogFile, source.LogFile)

	if len(source.DefaultLabels) > 0 || isSet(source, "defaultLabels") {
		target.DefaultLabels = make(map[string]string, len(source.DefaultLabels))
		for k, v := range source.DefaultLabels {
			target.DefaultLabels[k] = v
		}
		target.Sources["defaultLabels"] = sourceType
	}
	if len(source.Extensions) > 0 || isSet(source, "extensions") {
		target.Extensions = append([]string(nil), source.Extensions...)
		target.Sources["extensions"] = sourceType
	}

	// Booleans are only merged when explicitly present; a programmatic
	// config without SetFields can only switch them on.
	if isSet(source, "skipHidden") || (source.SetFields == nil && source.SkipHidden) {
		target.SkipHidden = source.SkipHidden
		target.Sources["skipHidden"] = sourceType
	}
}

func isSet(cfg *Config, key string) bool {
	return cfg.SetFields != nil && cfg.SetFields[key]
}
