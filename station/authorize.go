package station

import (
	"encoding/json"

	"stationsim/ocpp/core"
	"stationsim/types"
)

// isIdTagAuthorized checks the local list and the authorization cache
// before falling back to an Authorize round trip. Accepted tags are cached
// until ClearCache.
func (s *Station) isIdTagAuthorized(idTag string) bool {
	if s.localAuthTags[idTag] {
		return true
	}
	if s.authCache[idTag] {
		return true
	}
	data, err := s.sender.Send(core.NewAuthorizeRequest(idTag))
	if err != nil {
		s.logger.Error(s.id+": authorize", err)
		return false
	}
	var response core.AuthorizeResponse
	if err = json.Unmarshal(data, &response); err != nil {
		s.logger.Error(s.id+": authorize response", err)
		return false
	}
	if response.IdTagInfo == nil || response.IdTagInfo.Status != types.AuthorizationStatusAccepted {
		return false
	}
	s.authCache[idTag] = true
	return true
}
