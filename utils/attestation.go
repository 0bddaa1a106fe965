package utils

import (
	"educhain/config"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// dappVisitResponse is the attestation service's answer for a wallet visit
// lookup
type dappVisitResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Visited   bool   `json:"visited"`
		VisitedAt string `json:"visited_at"`
	} `json:"data"`
}

// VerifyDappVisit asks the attestation service whether the wallet has a
// tracked dapp session for this course
func VerifyDappVisit(wallet string, courseID uint) (bool, error) {
	if config.AppConfig.AttestationApiKey == "" {
		return false, fmt.Errorf("attestation api key is not configured")
	}

	client := resty.New()
	var result dappVisitResponse

	resp, err := client.R().
		SetHeader("Authorization", "Bearer "+config.AppConfig.AttestationApiKey).
		SetQueryParams(map[string]string{
			"wallet":    wallet,
			"course_id": fmt.Sprintf("%d", courseID),
		}).
		SetResult(&result).
		Get(config.AppConfig.AttestationApiURL + "dapp-visit")
	if err != nil {
		return false, fmt.Errorf("failed to reach attestation service: %v", err)
	}

	if resp.StatusCode() != 200 {
		return false, fmt.Errorf("attestation API error: %s", resp.String())
	}

	return result.Data.Visited, nil
}
