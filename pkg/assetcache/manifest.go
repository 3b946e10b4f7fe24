package assetcache

// DefaultCacheName versions the cache. Changing it starts a new cache.
const DefaultCacheName = "voice-agent-v1"

// DefaultManifest lists the assets pre-cached at install time: the root
// document, the web manifest, and the offline speech model files.
func DefaultManifest() []string {
	return []string{
		"/",
		"/manifest.json",
		"/whisper/whisper.wasm",
		"/whisper/whisper.js",
		"/tts/model.onnx",
		"/tts/tokenizer.json",
	}
}

// DefaultBypassHosts are never served from the cache.
func DefaultBypassHosts() []string {
	return []string{"generativelanguage.googleapis.com"}
}
