package repository

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-kit/log/level"
	"github.com/go-resty/resty/v2"
	"github.com/passlock/go-passlock-server/global"
	"github.com/passlock/go-passlock-server/types"
)

// handleError maps transport and Data API failures to the sentinel errors
// the services branch on. Anything unexpected becomes ErrUpstream so the
// callers never surface store internals.
func handleError(resp *resty.Response, reqErr error) error {
	if reqErr != nil {
		level.Error(global.Logger).Log("msg", "data api request failed", "error", reqErr.Error())
		return fmt.Errorf("%w: %s", types.ErrUpstream, reqErr.Error())
	}
	if resp == nil {
		return types.ErrUpstream
	}
	if resp.StatusCode() == http.StatusNotFound {
		return types.ErrNotFound
	}
	if resp.StatusCode() == http.StatusConflict {
		return types.ErrConflict
	}
	if resp.IsError() {
		var body map[string]interface{}
		if uErr := json.Unmarshal(resp.Body(), &body); uErr == nil {
			if errDesc, ok := body["error"]; ok {
				level.Error(global.Logger).Log("msg", "data api error", "error", errDesc)
				return fmt.Errorf("%w: %v", types.ErrUpstream, errDesc)
			}
		}
		level.Error(global.Logger).Log("msg", "data api error", "status", resp.StatusCode())
		return types.ErrUpstream
	}
	return nil
}
