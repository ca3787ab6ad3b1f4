package model

// The staging layer narrows and de-nulls the four raw tables; the mart
// layer computes the aggregates on top of it. Statements target the
// warehouse dialects supported by the runner (Snowflake syntax, with
// DATEDIFF/DATE_TRUNC usage the adapters all accept).

const sqlStgUsers = `
SELECT
    user_id,
    age,
    age_group,
    region,
    device_type,
    signup_date,
    DATE_TRUNC('month', signup_date) AS cohort_month
FROM raw_users
WHERE user_id IS NOT NULL
`

const sqlStgProducts = `
SELECT
    product_id,
    category,
    brand,
    base_price,
    current_price
FROM raw_products
WHERE product_id IS NOT NULL
`

const sqlStgEvents = `
SELECT
    event_id,
    user_id,
    product_id,
    event_type,
    event_timestamp,
    CAST(event_timestamp AS DATE) AS event_date,
    traffic_source
FROM raw_events
WHERE event_id IS NOT NULL
  AND user_id IS NOT NULL
  AND event_timestamp IS NOT NULL
`

const sqlStgSales = `
SELECT
    sale_id,
    user_id,
    product_id,
    sale_timestamp,
    CAST(sale_timestamp AS DATE) AS sale_date,
    quantity,
    unit_price,
    total_amount,
    discount,
    net_amount,
    payment_method,
    order_status
FROM raw_sales
WHERE sale_id IS NOT NULL
  AND user_id IS NOT NULL
  AND product_id IS NOT NULL
  AND order_status = 'completed'
`

// Session boundaries open where the gap to the previous event exceeds
// the configured timeout; the running boundary count numbers the
// sessions per user.
const sqlMartUserSessions = `
WITH ordered_events AS (
    SELECT
        user_id,
        event_id,
        event_type,
        event_timestamp,
        LAG(event_timestamp) OVER (
            PARTITION BY user_id ORDER BY event_timestamp
        ) AS prev_event_timestamp
    FROM stg_events
),
boundaries AS (
    SELECT
        *,
        CASE
            WHEN prev_event_timestamp IS NULL THEN 1
            WHEN DATEDIFF('second', prev_event_timestamp, event_timestamp) > {{ .SessionTimeoutMinutes }} * 60 THEN 1
            ELSE 0
        END AS is_session_start
    FROM ordered_events
),
numbered AS (
    SELECT
        *,
        SUM(is_session_start) OVER (
            PARTITION BY user_id ORDER BY event_timestamp
            ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW
        ) AS session_seq
    FROM boundaries
)
SELECT
    user_id,
    session_seq,
    MIN(event_timestamp) AS session_start,
    MAX(event_timestamp) AS session_end,
    DATEDIFF('minute', MIN(event_timestamp), MAX(event_timestamp)) AS session_duration_minutes,
    COUNT(*) AS event_count,
    SUM(CASE WHEN event_type = 'page_view' THEN 1 ELSE 0 END) AS page_views,
    SUM(CASE WHEN event_type = 'product_view' THEN 1 ELSE 0 END) AS product_views,
    SUM(CASE WHEN event_type = 'add_to_cart' THEN 1 ELSE 0 END) AS add_to_carts,
    SUM(CASE WHEN event_type = 'remove_from_cart' THEN 1 ELSE 0 END) AS remove_from_carts,
    SUM(CASE event_type
            WHEN 'page_view' THEN 1
            WHEN 'product_view' THEN 2
            WHEN 'add_to_cart' THEN 5
            WHEN 'remove_from_cart' THEN -3
            ELSE 0
        END) AS engagement_score,
    CASE
        WHEN SUM(CASE WHEN event_type IN ('add_to_cart', 'remove_from_cart') THEN 1 ELSE 0 END) > 0 THEN 'High Intent'
        WHEN SUM(CASE WHEN event_type = 'product_view' THEN 1 ELSE 0 END) > 3 THEN 'Medium Intent'
        WHEN SUM(CASE WHEN event_type = 'page_view' THEN 1 ELSE 0 END) > 5 THEN 'Browsing'
        ELSE 'Low Engagement'
    END AS session_quality
FROM numbered
GROUP BY user_id, session_seq
`

const sqlMartCohortAnalysis = `
WITH cohort_sizes AS (
    SELECT
        cohort_month,
        region,
        device_type,
        age_group,
        COUNT(DISTINCT user_id) AS cohort_size
    FROM stg_users
    GROUP BY cohort_month, region, device_type, age_group
),
activity AS (
    SELECT
        u.cohort_month,
        u.region,
        u.device_type,
        u.age_group,
        DATEDIFF('month', u.cohort_month, DATE_TRUNC('month', s.sale_timestamp)) AS cohort_age,
        COUNT(DISTINCT s.user_id) AS active_users,
        SUM(s.net_amount) AS revenue,
        COUNT(s.sale_id) AS transactions
    FROM stg_users u
    JOIN stg_sales s ON s.user_id = u.user_id
    WHERE DATEDIFF('month', u.cohort_month, DATE_TRUNC('month', s.sale_timestamp)) >= 0
    GROUP BY u.cohort_month, u.region, u.device_type, u.age_group,
             DATEDIFF('month', u.cohort_month, DATE_TRUNC('month', s.sale_timestamp))
)
SELECT
    a.cohort_month,
    a.region,
    a.device_type,
    a.age_group,
    a.cohort_age,
    c.cohort_size,
    a.active_users,
    a.revenue,
    a.transactions,
    CASE WHEN c.cohort_size > 0
         THEN a.active_users * 100.0 / c.cohort_size
    END AS retention_rate_pct,
    SUM(a.revenue) OVER (
        PARTITION BY a.cohort_month, a.region, a.device_type, a.age_group
        ORDER BY a.cohort_age
        ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW
    ) AS cumulative_revenue,
    SUM(a.active_users) OVER (
        PARTITION BY a.cohort_month, a.region, a.device_type, a.age_group
        ORDER BY a.cohort_age
        ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW
    ) AS cumulative_active_users,
    CASE WHEN c.cohort_size > 0
         THEN SUM(a.revenue) OVER (
                  PARTITION BY a.cohort_month, a.region, a.device_type, a.age_group
                  ORDER BY a.cohort_age
                  ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW
              ) / c.cohort_size
    END AS lifetime_value_to_date
FROM activity a
JOIN cohort_sizes c
  ON c.cohort_month = a.cohort_month
 AND c.region = a.region
 AND c.device_type = a.device_type
 AND c.age_group = a.age_group
`

// Stage flags are computed independently per user per day; a purchase
// counts even without a same-day page view.
const sqlMartFunnelDaily = `
WITH daily_stages AS (
    SELECT
        e.event_date,
        e.user_id,
        MAX(CASE WHEN e.event_type = 'page_view' THEN 1 ELSE 0 END) AS did_page_view,
        MAX(CASE WHEN e.event_type = 'product_view' THEN 1 ELSE 0 END) AS did_product_view,
        MAX(CASE WHEN e.event_type = 'add_to_cart' THEN 1 ELSE 0 END) AS did_add_to_cart
    FROM stg_events e
    GROUP BY e.event_date, e.user_id
),
daily_purchases AS (
    SELECT DISTINCT
        s.sale_date AS event_date,
        s.user_id,
        1 AS did_purchase
    FROM stg_sales s
),
combined AS (
    SELECT
        COALESCE(d.event_date, p.event_date) AS event_date,
        COALESCE(d.user_id, p.user_id) AS user_id,
        COALESCE(d.did_page_view, 0) AS did_page_view,
        COALESCE(d.did_product_view, 0) AS did_product_view,
        COALESCE(d.did_add_to_cart, 0) AS did_add_to_cart,
        COALESCE(p.did_purchase, 0) AS did_purchase
    FROM daily_stages d
    FULL OUTER JOIN daily_purchases p
      ON p.event_date = d.event_date AND p.user_id = d.user_id
),
aggregated AS (
    SELECT
        c.event_date,
        u.device_type,
        SUM(c.did_page_view) AS users_page_view,
        SUM(c.did_product_view) AS users_product_view,
        SUM(c.did_add_to_cart) AS users_add_to_cart,
        SUM(c.did_purchase) AS users_purchase
    FROM combined c
    JOIN stg_users u ON u.user_id = c.user_id
    GROUP BY c.event_date, u.device_type
)
SELECT
    event_date,
    device_type,
    users_page_view,
    users_product_view,
    users_add_to_cart,
    users_purchase,
    CASE WHEN users_page_view > 0
         THEN users_product_view * 100.0 / users_page_view
    END AS product_view_conversion_pct,
    CASE WHEN users_product_view > 0
         THEN users_add_to_cart * 100.0 / users_product_view
    END AS add_to_cart_conversion_pct,
    CASE WHEN users_add_to_cart > 0
         THEN users_purchase * 100.0 / users_add_to_cart
    END AS purchase_conversion_pct,
    CASE WHEN users_page_view > 0
         THEN users_purchase * 100.0 / users_page_view
    END AS conversion_overall_pct,
    CASE WHEN users_page_view > 0
         THEN 100.0 - users_product_view * 100.0 / users_page_view
    END AS product_view_drop_off_pct,
    CASE WHEN users_product_view > 0
         THEN 100.0 - users_add_to_cart * 100.0 / users_product_view
    END AS add_to_cart_drop_off_pct,
    CASE WHEN users_add_to_cart > 0
         THEN 100.0 - users_purchase * 100.0 / users_add_to_cart
    END AS purchase_drop_off_pct
FROM aggregated
`

// Moving averages are trailing row-count windows within the user
// partition, not calendar windows.
const sqlMartSalesWindow = `
SELECT
    s.sale_id,
    s.user_id,
    s.product_id,
    p.category,
    u.region,
    s.sale_timestamp,
    s.net_amount,
    SUM(s.net_amount) OVER (
        PARTITION BY s.user_id ORDER BY s.sale_timestamp
        ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW
    ) AS running_user_revenue,
    ROW_NUMBER() OVER (
        PARTITION BY s.user_id ORDER BY s.sale_timestamp
    ) AS purchase_sequence,
    AVG(s.net_amount) OVER (
        PARTITION BY s.user_id ORDER BY s.sale_timestamp
        ROWS BETWEEN 6 PRECEDING AND CURRENT ROW
    ) AS moving_avg_7,
    AVG(s.net_amount) OVER (
        PARTITION BY s.user_id ORDER BY s.sale_timestamp
        ROWS BETWEEN 29 PRECEDING AND CURRENT ROW
    ) AS moving_avg_30,
    LAG(s.sale_timestamp) OVER (
        PARTITION BY s.user_id ORDER BY s.sale_timestamp
    ) AS prev_purchase_date,
    LEAD(s.sale_timestamp) OVER (
        PARTITION BY s.user_id ORDER BY s.sale_timestamp
    ) AS next_purchase_date,
    FIRST_VALUE(s.net_amount) OVER (
        PARTITION BY s.user_id ORDER BY s.sale_timestamp
        ROWS BETWEEN UNBOUNDED PRECEDING AND UNBOUNDED FOLLOWING
    ) AS first_purchase_amount,
    LAST_VALUE(s.net_amount) OVER (
        PARTITION BY s.user_id ORDER BY s.sale_timestamp
        ROWS BETWEEN UNBOUNDED PRECEDING AND UNBOUNDED FOLLOWING
    ) AS last_purchase_amount,
    SUM(s.net_amount) OVER (
        PARTITION BY p.category ORDER BY s.sale_timestamp
        ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW
    ) AS category_cumulative_revenue,
    DENSE_RANK() OVER (
        PARTITION BY p.category ORDER BY s.net_amount DESC
    ) AS category_revenue_dense_rank,
    PERCENT_RANK() OVER (
        PARTITION BY u.region ORDER BY s.net_amount
    ) AS region_percentile_rank,
    NTILE(4) OVER (
        PARTITION BY u.region ORDER BY s.net_amount DESC
    ) AS region_quartile
FROM stg_sales s
JOIN stg_users u ON u.user_id = s.user_id
JOIN stg_products p ON p.product_id = s.product_id
`

// notNull declares not_null checks for the listed columns.
func notNull(columns ...string) []Check {
	checks := make([]Check, len(columns))
	for i, c := range columns {
		checks[i] = Check{Type: "not_null", Column: c}
	}
	return checks
}

// Catalog returns the built-in model set in declaration order.
func Catalog() []Model {
	return []Model{
		{
			Name:         "stg_users",
			Description:  "Cleaned user dimension with derived cohort month",
			Materialized: MaterializationView,
			Tags:         []string{"staging"},
			Sources:      []string{"raw_users"},
			SQL:          sqlStgUsers,
			Checks: append(notNull("user_id", "signup_date", "cohort_month"),
				Check{Type: "accepted_values", Column: "device_type",
					Values: []string{"desktop", "mobile", "tablet"}}),
		},
		{
			Name:         "stg_products",
			Description:  "Cleaned product dimension",
			Materialized: MaterializationView,
			Tags:         []string{"staging"},
			Sources:      []string{"raw_products"},
			SQL:          sqlStgProducts,
			Checks: append(notNull("product_id", "category"),
				Check{Type: "non_negative", Column: "current_price"}),
		},
		{
			Name:         "stg_events",
			Description:  "Cleaned event fact stream restricted to timestamped rows",
			Materialized: MaterializationView,
			Tags:         []string{"staging"},
			Sources:      []string{"raw_events"},
			SQL:          sqlStgEvents,
			Checks: append(notNull("event_id", "user_id", "event_timestamp"),
				Check{Type: "accepted_values", Column: "event_type",
					Values: []string{"page_view", "product_view", "add_to_cart", "remove_from_cart"}}),
		},
		{
			Name:         "stg_sales",
			Description:  "Completed sales only; refunds filtered at the staging boundary",
			Materialized: MaterializationView,
			Tags:         []string{"staging"},
			Sources:      []string{"raw_sales"},
			SQL:          sqlStgSales,
			Checks: append(notNull("sale_id", "user_id", "product_id"),
				Check{Type: "accepted_values", Column: "order_status",
					Values: []string{"completed"}}),
		},
		{
			Name:         "mart_user_sessions",
			Description:  "Gap-based sessions with engagement score and quality label",
			Materialized: MaterializationTable,
			Tags:         []string{"mart", "sessions"},
			Refs:         []string{"stg_events"},
			SQL:          sqlMartUserSessions,
			Checks: append(notNull("user_id", "session_seq", "session_start", "session_end"),
				Check{Type: "accepted_values", Column: "session_quality",
					Values: []string{"High Intent", "Medium Intent", "Browsing", "Low Engagement"}},
				Check{Type: "expression", Column: "session_end",
					Expression: "session_end >= session_start"}),
		},
		{
			Name:         "mart_cohort_analysis",
			Description:  "Retention and lifetime value per cohort segment and age",
			Materialized: MaterializationTable,
			Tags:         []string{"mart", "cohorts"},
			Refs:         []string{"stg_users", "stg_sales"},
			SQL:          sqlMartCohortAnalysis,
			Checks: append(notNull("cohort_month", "cohort_age", "cohort_size"),
				Check{Type: "bounded", Column: "retention_rate_pct", Min: 0, Max: 100},
				Check{Type: "expression", Column: "active_users",
					Expression: "cohort_size >= active_users"},
				Check{Type: "expression", Column: "cohort_age",
					Expression: "cohort_age >= 0"}),
		},
		{
			Name:         "mart_funnel_daily",
			Description:  "Daily funnel stage counts and conversion rates per device",
			Materialized: MaterializationTable,
			Tags:         []string{"mart", "funnel"},
			Refs:         []string{"stg_users", "stg_events", "stg_sales"},
			SQL:          sqlMartFunnelDaily,
			Checks: append(notNull("event_date", "device_type"),
				Check{Type: "bounded", Column: "conversion_overall_pct", Min: 0, Max: 100},
				Check{Type: "expression", Column: "users_page_view",
					Expression: "users_page_view >= users_product_view"},
				Check{Type: "expression", Column: "users_product_view",
					Expression: "users_product_view >= users_add_to_cart"}),
		},
		{
			Name:         "mart_sales_window",
			Description:  "Per-sale window analytics over user, category and region partitions",
			Materialized: MaterializationTable,
			Tags:         []string{"mart", "window"},
			Refs:         []string{"stg_users", "stg_products", "stg_sales"},
			SQL:          sqlMartSalesWindow,
			Checks: append(notNull("sale_id", "user_id", "purchase_sequence"),
				Check{Type: "bounded", Column: "region_percentile_rank", Min: 0, Max: 1},
				Check{Type: "bounded", Column: "region_quartile", Min: 1, Max: 4},
				Check{Type: "expression", Column: "running_user_revenue",
					Expression: "running_user_revenue >= net_amount OR net_amount < 0"}),
		},
	}
}
