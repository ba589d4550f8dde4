// Package settings holds the persisted sync configuration: folder sets,
// file-type toggles, the selected chat model, and the language override.
package settings

// FileTypes are the per-type sync toggles.
type FileTypes struct {
	Markdown bool `koanf:"markdown" yaml:"markdown" json:"markdown"`
	Images   bool `koanf:"images" yaml:"images" json:"images"`
	PDF      bool `koanf:"pdf" yaml:"pdf" json:"pdf"`
}

// Settings is the sync configuration persisted on disk. A nil
// SelectedChatModelID means "use backend default"; the server returning no
// preference and the local null are one and the same state.
type Settings struct {
	SyncFolders    []string  `koanf:"sync_folders" yaml:"sync_folders"`
	ExcludeFolders []string  `koanf:"exclude_folders" yaml:"exclude_folders"`
	FileTypes      FileTypes `koanf:"file_types" yaml:"file_types"`
	// SelectedChatModelID is persisted so the UI reflects a reconciled
	// fallback to the backend default across restarts.
	SelectedChatModelID *string `koanf:"selected_chat_model_id" yaml:"selected_chat_model_id"`
	// Language is the manual language override; empty means auto-detect.
	Language string `koanf:"language" yaml:"language,omitempty"`
}

// DefaultSettings returns the configuration used before the user has chosen
// anything: the whole vault syncs, markdown only.
func DefaultSettings() Settings {
	return Settings{
		SyncFolders:    []string{""},
		ExcludeFolders: []string{},
		FileTypes:      FileTypes{Markdown: true},
	}
}
