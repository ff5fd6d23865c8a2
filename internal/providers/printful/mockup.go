package printful

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"podstudio/internal/payload"
)

// Position places the artifact inside the print area, in pixels.
type Position struct {
	AreaWidth  int `json:"area_width"`
	AreaHeight int `json:"area_height"`
	Width      int `json:"width"`
	Height     int `json:"height"`
	Top        int `json:"top"`
	Left       int `json:"left"`
}

// MockupFile is one placement of the create-task request.
type MockupFile struct {
	Placement string   `json:"placement"`
	ImageURL  string   `json:"image_url"`
	Position  Position `json:"position"`
}

// MockupTaskRequest asks the provider to render files onto variants.
type MockupTaskRequest struct {
	VariantIDs []int64      `json:"variant_ids"`
	Format     string       `json:"format,omitempty"`
	Files      []MockupFile `json:"files"`
}

// TaskRef identifies a submitted task.
type TaskRef struct {
	Key    string
	Status string
}

// Mockup is one rendered entry: a primary URL plus optional extra angles.
type Mockup struct {
	Placement string
	URL       string
	Extra     []string
}

// TaskResult is one status poll.
type TaskResult struct {
	Status  string
	Error   string
	Mockups []Mockup
}

// CreateMockupTask submits an asynchronous render. The returned key may be
// empty if the provider answered without one; callers treat that as a rejection.
func (c *Client) CreateMockupTask(ctx context.Context, productID int64, req MockupTaskRequest) (TaskRef, error) {
	if req.Format == "" {
		req.Format = "jpg"
	}
	envelope, err := c.do(ctx, http.MethodPost, "/mockup-generator/create-task/"+strconv.FormatInt(productID, 10), nil, req)
	if err != nil {
		return TaskRef{}, fmt.Errorf("create mockup task: %w", err)
	}
	result := envelope.Object("result")
	return TaskRef{
		Key:    result.String("", "task_key", "taskKey"),
		Status: result.String("pending", "status"),
	}, nil
}

// MockupTask polls the status of a task.
func (c *Client) MockupTask(ctx context.Context, taskKey string) (TaskResult, error) {
	envelope, err := c.do(ctx, http.MethodGet, "/mockup-generator/task", url.Values{"task_key": {taskKey}}, nil)
	if err != nil {
		return TaskResult{}, fmt.Errorf("poll mockup task: %w", err)
	}
	return parseTaskResult(envelope.Object("result")), nil
}

func parseTaskResult(obj payload.Object) TaskResult {
	res := TaskResult{
		Status: obj.String("pending", "status"),
		Error:  obj.String("", "error", "message"),
	}
	for _, m := range obj.Objects("mockups") {
		mockup := Mockup{
			Placement: m.String("", "placement"),
			URL:       m.String("", "mockup_url", "url"),
		}
		for _, extra := range m.Objects("extra") {
			if u := extra.String("", "url", "mockup_url"); u != "" {
				mockup.Extra = append(mockup.Extra, u)
			}
		}
		res.Mockups = append(res.Mockups, mockup)
	}
	return res
}
