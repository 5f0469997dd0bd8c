package domain

// Project is a short film being assembled.
type Project struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Genre    string `json:"genre"`
	Synopsis string `json:"synopsis"`
	Tone     string `json:"tone"`
}

// Character is a recurring person referenced by scenes.
type Character struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
