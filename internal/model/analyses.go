package model

// Analyses are ad-hoc reporting queries over the mart outputs. They are
// never materialized; 'martforge compile' prints them and operators run
// them directly.

const analysisTopSessions = `
SELECT
    user_id,
    session_seq,
    session_start,
    session_duration_minutes,
    event_count,
    engagement_score,
    session_quality
FROM mart_user_sessions
ORDER BY engagement_score DESC
LIMIT 20
`

const analysisMonthlyCohortRetention = `
SELECT
    cohort_month,
    cohort_age,
    SUM(cohort_size) AS cohort_size,
    SUM(active_users) AS active_users,
    CASE WHEN SUM(cohort_size) > 0
         THEN SUM(active_users) * 100.0 / SUM(cohort_size)
    END AS retention_rate_pct
FROM mart_cohort_analysis
GROUP BY cohort_month, cohort_age
ORDER BY cohort_month, cohort_age
`

const analysisFunnelSummary = `
SELECT
    device_type,
    SUM(users_page_view) AS users_page_view,
    SUM(users_product_view) AS users_product_view,
    SUM(users_add_to_cart) AS users_add_to_cart,
    SUM(users_purchase) AS users_purchase,
    CASE WHEN SUM(users_page_view) > 0
         THEN SUM(users_purchase) * 100.0 / SUM(users_page_view)
    END AS conversion_overall_pct
FROM mart_funnel_daily
GROUP BY device_type
ORDER BY device_type
`

const analysisTopSpenders = `
SELECT
    user_id,
    MAX(running_user_revenue) AS lifetime_value,
    MAX(purchase_sequence) AS purchases,
    MIN(first_purchase_amount) AS first_purchase_amount,
    MAX(last_purchase_amount) AS last_purchase_amount
FROM mart_sales_window
GROUP BY user_id
ORDER BY lifetime_value DESC
LIMIT 20
`

// Analyses maps analysis names to their SQL text.
var Analyses = map[string]string{
	"top_sessions":             analysisTopSessions,
	"monthly_cohort_retention": analysisMonthlyCohortRetention,
	"funnel_summary":           analysisFunnelSummary,
	"top_spenders":             analysisTopSpenders,
}
