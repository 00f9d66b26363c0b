package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/modelmeter/modelmeter/pkg/bedrock"
)

// failureKind drives what the evaluate loop does after a failed attempt.
type failureKind int

const (
	// failRetryable: give the variant one more chance, then advance.
	failRetryable failureKind = iota
	// failNextVariant: the identifier form is wrong, advance immediately.
	failNextVariant
	// failNeedsProfile: the model requires an inference profile, derive
	// a qualified alias and keep going.
	failNeedsProfile
	// failFatal: no identifier variant can succeed, stop the walk.
	failFatal
)

// classify maps an attempt error to the action the loop should take.
func classify(err error) failureKind {
	var apiErr *bedrock.APIError
	if !errors.As(err, &apiErr) {
		return failRetryable
	}

	msg := strings.ToLower(apiErr.Message)
	if strings.Contains(msg, "inference profile") || strings.Contains(msg, "on-demand throughput") {
		return failNeedsProfile
	}

	switch apiErr.Code {
	case "ValidationException":
		return failNextVariant
	case "AccessDeniedException":
		return failFatal
	case "ResourceNotFoundException":
		if strings.Contains(msg, "use case details") {
			return failFatal
		}
		return failNextVariant
	case "ThrottlingException", "ServiceUnavailableException", "InternalServerException", "ModelTimeoutException":
		return failRetryable
	default:
		return failRetryable
	}
}

// accessRemediation wraps an entitlement failure with the steps that
// actually fix it. Bedrock model access is granted per account and region
// through the console, and grants take a few minutes to propagate.
func accessRemediation(modelName, modelID, region string, err error) error {
	return fmt.Errorf(
		"model %s (%s) is not accessible in %s: %w\n"+
			"Request access in the AWS console under Bedrock > Model access, "+
			"submit use case details if prompted, and allow 5-15 minutes for the grant to propagate",
		modelName, modelID, region, err,
	)
}

// exhaustedError summarizes a variant walk that never produced a response.
func exhaustedError(modelName string, attempted []string, lastErr error) error {
	return fmt.Errorf(
		"all identifier variants failed for model %s (tried %s): %w",
		modelName, strings.Join(attempted, ", "), lastErr,
	)
}
