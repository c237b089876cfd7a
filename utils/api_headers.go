package utils

const (
	XRequestIdHeader        = "X-Request-Id"
	XRoundIdHeader          = "X-Round-Id"
	XRequesterAddressHeader = "X-Requester-Address"
	XNetworkIdHeader        = "X-Network-Id"
	XTimestampHeader        = "X-Timestamp"
)
