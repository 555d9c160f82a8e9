package retry

import "github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

// AzureOptions maps p onto the retry settings of an azcore pipeline.
// azcore treats zero MaxRetries as its default of three, so a single
// attempt is expressed as -1.
func AzureOptions(p Policy) policy.RetryOptions {
	retries := int32(p.MaxAttempts - 1)
	if retries <= 0 {
		retries = -1
	}
	return policy.RetryOptions{
		MaxRetries:    retries,
		RetryDelay:    p.MinWait,
		MaxRetryDelay: p.MaxWait,
	}
}
