package session

// PlayerOptions are the construction arguments handed to the player widget.
type PlayerOptions struct {
	Width    int  `mapstructure:"width" json:"width"`
	Height   int  `mapstructure:"height" json:"height"`
	AutoPlay bool `mapstructure:"autoplay" json:"autoPlay"`
}

// DefaultPlayerOptions is a 1024x576 player that waits for the user to press play.
func DefaultPlayerOptions() PlayerOptions {
	return PlayerOptions{Width: 1024, Height: 576, AutoPlay: false}
}
