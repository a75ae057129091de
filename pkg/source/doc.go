// Package source turns pipeline definition files into lineage payloads.
//
// A definition file maps pipeline names to their tasks:
//
//	sales:
//	  tasks:
//	    - id: extract_orders
//	      op_type: PythonOperator
//	      params:
//	        TARGET_TABLE: raw.orders
//	    - id: stg_orders
//	      op_type: SnowflakeOperator
//	      depends_on: [extract_orders]
//
// YAML (.yml, .yaml) and TOML (.toml) files are supported. [LoadDir] reads
// every definition under a directory and [BuildPayload] converts them into
// a [lineage.Store] with the dag, table, and metric view modes.
//
// Built payloads can be written to disk with [WritePayloadFile] or published
// to MongoDB through a [MongoStore].
package source
