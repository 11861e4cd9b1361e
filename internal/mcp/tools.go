package mcp

import "github.com/mark3labs/mcp-go/mcp"

var searchSimilarTasksTool = mcp.NewTool("search_similar_tasks",
	mcp.WithDescription("Find construction tasks semantically similar to a free-text description. Returns task id, title, trade, priority, status, distance and similarity score."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language description of the work"),
	),
	mcp.WithNumber("k",
		mcp.Description("Maximum number of tasks to return (default 10)"),
		mcp.Min(1),
	),
	mcp.WithNumber("min_distance",
		mcp.Description("Drop tasks closer than this cosine distance"),
	),
	mcp.WithNumber("max_distance",
		mcp.Description("Drop tasks farther than this cosine distance"),
	),
)

var searchSimilarUsersTool = mcp.NewTool("search_similar_users",
	mcp.WithDescription("Find workers whose skill profile matches a free-text description."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language description of the skills wanted"),
	),
	mcp.WithNumber("k",
		mcp.Description("Maximum number of workers to return (default 10)"),
		mcp.Min(1),
	),
	mcp.WithNumber("min_similarity_score",
		mcp.Description("Minimum similarity score, (1 - distance) * 100"),
	),
	mcp.WithString("role_filter",
		mcp.Description("Only workers with this role (case-insensitive)"),
	),
	mcp.WithNumber("min_experience_years",
		mcp.Description("Only workers with at least this many years of experience"),
		mcp.Min(0),
	),
	mcp.WithString("trade_category_filter",
		mcp.Description("Only workers with a trade category containing this text"),
	),
)

var findBestWorkersTool = mcp.NewTool("find_best_workers_for_task",
	mcp.WithDescription("Rank workers for a task described by its title, description, skills and trade."),
	mcp.WithString("title",
		mcp.Required(),
		mcp.Description("Task title"),
	),
	mcp.WithString("description",
		mcp.Description("Task description"),
	),
	mcp.WithArray("skill_requirements",
		mcp.Description("Skills the task needs; used to build the query text"),
		mcp.WithStringItems(),
	),
	mcp.WithString("trade_category",
		mcp.Description("Trade category of the task"),
	),
	mcp.WithNumber("k",
		mcp.Description("Maximum number of workers to return (default 10)"),
		mcp.Min(1),
	),
	mcp.WithNumber("min_similarity_score",
		mcp.Description("Minimum similarity score, (1 - distance) * 100"),
	),
	mcp.WithArray("required_skills",
		mcp.Description("Keep only workers with a skill containing one of these (case-insensitive)"),
		mcp.WithStringItems(),
	),
	mcp.WithNumber("preferred_experience_years",
		mcp.Description("Keep only workers with at least this many years of experience"),
		mcp.Min(0),
	),
)

var getVectorEntryTool = mcp.NewTool("get_vector_entry",
	mcp.WithDescription("Show the stored text and metadata of one vector entry, e.g. task_7 or user_3."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Entry id: <entity>_<source id>"),
	),
)
