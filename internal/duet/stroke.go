package duet

import "errors"

type Tool string

const (
	ToolPen    Tool = "pen"
	ToolEraser Tool = "eraser"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Stroke struct {
	ID     string  `json:"id"`
	Points []Point `json:"points"`
	Color  string  `json:"color"`
	Width  int     `json:"width"`
	Tool   Tool    `json:"tool"`
	Author string  `json:"authorId"`
}

func (s Stroke) Validate() error {
	if len(s.Points) == 0 {
		return errors.New("INVALID_PAYLOAD: stroke requires at least one point")
	}
	if s.Width <= 0 {
		return errors.New("INVALID_PAYLOAD: stroke width must be positive")
	}
	if s.Tool != ToolPen && s.Tool != ToolEraser {
		return errors.New("INVALID_PAYLOAD: stroke tool must be pen or eraser")
	}
	return nil
}
