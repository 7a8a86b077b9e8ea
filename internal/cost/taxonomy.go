package cost

import "strings"

// Category is a coarse service grouping used for breakdown rollups.
type Category string

const (
	CategoryCompute    Category = "compute"
	CategoryStorage    Category = "storage"
	CategoryDatabases  Category = "databases"
	CategoryNetworking Category = "networking"
	CategoryManagement Category = "management"
	CategorySecurity   Category = "security"
	CategoryAI         Category = "ai"
	CategoryOther      Category = "other"
)

// categoryMatchers are checked in order; the first substring hit wins.
var categoryMatchers = []struct {
	substr   string
	category Category
}{
	{"elastic compute", CategoryCompute},
	{"ec2", CategoryCompute},
	{"lambda", CategoryCompute},
	{"container", CategoryCompute},
	{"kubernetes", CategoryCompute},
	{"virtual machine", CategoryCompute},
	{"compute", CategoryCompute},
	{"s3", CategoryStorage},
	{"simple storage", CategoryStorage},
	{"glacier", CategoryStorage},
	{"backup", CategoryStorage},
	{"disk", CategoryStorage},
	{"storage", CategoryStorage},
	{"rds", CategoryDatabases},
	{"dynamodb", CategoryDatabases},
	{"aurora", CategoryDatabases},
	{"redshift", CategoryDatabases},
	{"elasticache", CategoryDatabases},
	{"database", CategoryDatabases},
	{"sql", CategoryDatabases},
	{"cloudfront", CategoryNetworking},
	{"route 53", CategoryNetworking},
	{"vpc", CategoryNetworking},
	{"load balanc", CategoryNetworking},
	{"data transfer", CategoryNetworking},
	{"network", CategoryNetworking},
	{"dns", CategoryNetworking},
	{"cloudwatch", CategoryManagement},
	{"cloudtrail", CategoryManagement},
	{"config", CategoryManagement},
	{"monitor", CategoryManagement},
	{"management", CategoryManagement},
	{"automation", CategoryManagement},
	{"guardduty", CategorySecurity},
	{"waf", CategorySecurity},
	{"key management", CategorySecurity},
	{"kms", CategorySecurity},
	{"secret", CategorySecurity},
	{"security", CategorySecurity},
	{"defender", CategorySecurity},
	{"sagemaker", CategoryAI},
	{"bedrock", CategoryAI},
	{"rekognition", CategoryAI},
	{"comprehend", CategoryAI},
	{"machine learning", CategoryAI},
	{"cognitive", CategoryAI},
	{"openai", CategoryAI},
}

// Categorize maps a billing service name onto the fixed taxonomy.
// Matching is case-insensitive substring; unmatched names are "other".
func Categorize(serviceName string) Category {
	name := strings.ToLower(serviceName)
	for _, m := range categoryMatchers {
		if strings.Contains(name, m.substr) {
			return m.category
		}
	}
	return CategoryOther
}
