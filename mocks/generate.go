package mocks

//go:generate mockgen -destination=./mock_gateway.go -package=mocks github.com/rxtech-lab/argo-fleet/internal/gateway Gateway
//go:generate mockgen -destination=./mock_order_update_source.go -package=mocks github.com/rxtech-lab/argo-fleet/internal/gateway OrderUpdateSource
//go:generate mockgen -destination=./mock_detector.go -package=mocks github.com/rxtech-lab/argo-fleet/internal/strategy Detector
