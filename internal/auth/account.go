package auth

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/aws/aws-sdk-go/service/sts/stsiface"
)

// ResolveAccountID returns the AWS account the service runs as, preferring an
// explicit override from configuration. Called once at startup; privileged
// tokens are validated against this value for the life of the process.
func ResolveAccountID(client stsiface.STSAPI, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	out, err := client.GetCallerIdentity(&sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("resolving caller identity: %w", err)
	}
	return aws.StringValue(out.Account), nil
}
