package catalog

import "github.com/kishansoni2726/multi-cloud-steampipe-console/domain/inventory"

var (
	awsBillingKey   = BillingKey{Column: "service"}
	azureBillingKey = BillingKey{Column: "instance_id", Derive: ResourceType}
	gcpBillingKey   = BillingKey{Column: "service"}
)

var builtin = []Adapter{
	// storage
	{
		Provider: inventory.AWS,
		Domain:   inventory.Storage,
		Query: `
with metrics as (
  select
    dim ->> 'Value' as bucket,
    max(maximum) filter (where metric_name = 'BucketSizeBytes') as size,
    max(maximum) filter (where metric_name = 'NumberOfObjects') as objects
  from
    aws_cloudwatch_metric_statistic_data_point,
    jsonb_array_elements(dimensions) as dim
  where
    namespace = 'AWS/S3'
    and metric_name in ('BucketSizeBytes', 'NumberOfObjects')
    and dim ->> 'Name' = 'BucketName'
    and timestamp > now() - interval '2 days'
  group by 1
)
select
  b.name,
  b.region,
  b.creation_date,
  m.size,
  m.objects
from
  aws_s3_bucket as b
  left join metrics as m on m.bucket = b.name;`,
		Fields: storageFields("name", "region", "", "creation_date", "size", "objects"),
	},
	{
		Provider: inventory.Azure,
		Domain:   inventory.Storage,
		Query: `
select
  name,
  primary_location as location,
  kind,
  sku_name,
  creation_time
from
  azure_storage_account;`,
		Fields: storageFields("name", "location", "kind", "creation_time", "", ""),
	},
	{
		Provider: inventory.GCP,
		Domain:   inventory.Storage,
		Query: `
select
  name,
  location,
  storage_class,
  time_created
from
  gcp_storage_bucket;`,
		Fields: storageFields("name", "location", "storage_class", "time_created", "", ""),
	},

	// compute
	{
		Provider: inventory.AWS,
		Domain:   inventory.Compute,
		Query: `
select
  coalesce(tags ->> 'Name', instance_id) as name,
  instance_type,
  instance_state,
  region,
  cpu_options_core_count * cpu_options_threads_per_core as vcpus,
  launch_time
from
  aws_ec2_instance;`,
		Fields: computeFields("name", "instance_type", "instance_state", "region", "vcpus", "launch_time"),
	},
	{
		Provider: inventory.Azure,
		Domain:   inventory.Compute,
		Query: `
select
  name,
  size,
  power_state,
  region,
  time_created
from
  azure_compute_virtual_machine;`,
		Fields: computeFields("name", "size", "power_state", "region", "", "time_created"),
	},
	{
		Provider: inventory.GCP,
		Domain:   inventory.Compute,
		Query: `
select
  name,
  machine_type_name,
  status,
  zone,
  creation_timestamp
from
  gcp_compute_instance;`,
		Fields: computeFields("name", "machine_type_name", "status", "zone", "", "creation_timestamp"),
	},

	// billing, current calendar month
	{
		Provider: inventory.AWS,
		Domain:   inventory.Billing,
		Query: `
select
  service,
  sum(unblended_cost_amount) as cost,
  unblended_cost_unit as currency
from
  aws_cost_by_service_monthly
where
  period_start >= date_trunc('month', current_date)
group by
  service,
  unblended_cost_unit;`,
		Fields: billingFields(awsBillingKey, "cost", "currency"),
		Key:    &awsBillingKey,
	},
	{
		Provider: inventory.Azure,
		Domain:   inventory.Billing,
		Query: `
select
  instance_id,
  sum(pretax_cost) as cost,
  currency
from
  azure_consumption_usage
where
  usage_start >= date_trunc('month', current_date)
group by
  instance_id,
  currency;`,
		Fields: billingFields(azureBillingKey, "cost", "currency"),
		Key:    &azureBillingKey,
	},
	{
		Provider: inventory.GCP,
		Domain:   inventory.Billing,
		Query: `
select
  service_description as service,
  sum(cost) as cost,
  currency
from
  gcp_billing_export
where
  usage_start_time >= date_trunc('month', current_date)
group by
  service_description,
  currency;`,
		Fields: billingFields(gcpBillingKey, "cost", "currency"),
		Key:    &gcpBillingKey,
	},
}
