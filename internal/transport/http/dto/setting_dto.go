package dto

type SettingRequest struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Type     string `json:"type,omitempty"`
	Category string `json:"category,omitempty"`
}

func (r *SettingRequest) Validate() []string {
	var errors []string
	if r.Key == "" {
		errors = append(errors, "key is required")
	}
	return errors
}
