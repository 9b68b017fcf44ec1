package dockerhub

import (
	"github.com/goccy/go-json"
)

// PushNotification is the body Docker Hub posts to a repository webhook.
type PushNotification struct {
	CallbackUrl string `json:"callback_url"`
	PushData    struct {
		PushedAt int64  `json:"pushed_at"`
		Pusher   string `json:"pusher"`
		Tag      string `json:"tag"`
	} `json:"push_data"`
	Repository struct {
		RepoName  string `json:"repo_name"`
		Name      string `json:"name"`
		Namespace string `json:"namespace"`
		RepoUrl   string `json:"repo_url"`
	} `json:"repository"`
}

func Parse(body []byte) (*PushNotification, error) {
	var n PushNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (n *PushNotification) IsPush() bool {
	return n.Repository.RepoName != "" && n.PushData.Tag != ""
}

// Image returns "<repo>:<tag>".
func (n *PushNotification) Image() string {
	return n.Repository.RepoName + ":" + n.PushData.Tag
}
