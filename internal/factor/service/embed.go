package service

import _ "embed"

// Default reference table, compiled in so the service starts without any
// external data file. Sources: IEA national grid intensities, EPA/IPCC fuel
// factors, DEFRA water and waste factors.
//
//go:embed factors.yaml
var defaultFactorsYAML []byte
