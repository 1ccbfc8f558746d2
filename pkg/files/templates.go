package files

// Static assets written alongside every final report bundle. The HTML
// shell references them with relative paths so the bundle stays
// self-contained when served from the session output directory.

const reportHTMLTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s - Deep Research Report</title>
    <link rel="stylesheet" href="./assets/styles.css">
    <meta name="description" content="Research report generated by the DeepResearch assistant">
    <meta name="generator" content="DeepResearch">
    <meta name="theme-color" content="#3B82F6">
</head>
<body>
    <header class="top-navbar">
        <div class="navbar-content">
            <h1 class="navbar-title">%s</h1>
            <span class="navbar-meta">%s</span>
        </div>
    </header>
    <div class="main-layout">
        <aside class="sidebar" id="sidebar">
            <div class="sidebar-content">
                <h2>Contents</h2>
                <nav class="toc" id="toc"></nav>
                <div class="sidebar-footer">
                    <p class="info-label">Session</p>
                    <p class="info-value">%s</p>
                </div>
            </div>
        </aside>
        <main class="content-area">
            <article class="report-content" id="reportContent">
%s
            </article>
            <footer class="content-footer">
                <p>Generated by the <strong>DeepResearch</strong> assistant</p>
            </footer>
        </main>
    </div>
    <button class="back-to-top" id="backToTop" aria-label="Back to top">&#8593;</button>
    <script src="./assets/script.js"></script>
</body>
</html>`

const reportCSS = `:root {
    --primary-color: #3B82F6;
    --secondary-color: #6366F1;
    --text-primary: #1F2937;
    --text-secondary: #6B7280;
    --bg-primary: #FFFFFF;
    --bg-secondary: #F9FAFB;
    --border-color: #E5E7EB;
    --navbar-height: 64px;
    --sidebar-width: 300px;
}

* {
    margin: 0;
    padding: 0;
    box-sizing: border-box;
}

html {
    scroll-behavior: smooth;
}

body {
    font-family: 'Inter', -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
    line-height: 1.6;
    color: var(--text-primary);
    background: var(--bg-secondary);
}

.top-navbar {
    position: fixed;
    top: 0;
    left: 0;
    right: 0;
    height: var(--navbar-height);
    background: rgba(255, 255, 255, 0.95);
    border-bottom: 1px solid var(--border-color);
    z-index: 1000;
}

.navbar-content {
    display: flex;
    align-items: center;
    justify-content: space-between;
    height: 100%;
    padding: 0 24px;
}

.navbar-title {
    font-size: 1.25rem;
    font-weight: 600;
}

.navbar-meta {
    font-size: 0.875rem;
    color: var(--text-secondary);
}

.main-layout {
    display: flex;
    margin-top: var(--navbar-height);
}

.sidebar {
    width: var(--sidebar-width);
    background: var(--bg-primary);
    border-right: 1px solid var(--border-color);
    position: fixed;
    top: var(--navbar-height);
    height: calc(100vh - var(--navbar-height));
    overflow-y: auto;
}

.sidebar-content {
    padding: 24px;
    display: flex;
    flex-direction: column;
    height: 100%;
}

.toc ul {
    list-style: none;
}

.toc a {
    display: block;
    padding: 6px 12px;
    color: var(--text-secondary);
    text-decoration: none;
    border-radius: 6px;
    font-size: 0.875rem;
}

.toc a:hover {
    background: var(--bg-secondary);
    color: var(--text-primary);
}

.toc a.active {
    background: var(--primary-color);
    color: white;
}

.sidebar-footer {
    margin-top: auto;
    padding-top: 16px;
    border-top: 1px solid var(--border-color);
}

.info-label {
    font-size: 0.75rem;
    color: var(--text-secondary);
    text-transform: uppercase;
}

.info-value {
    font-size: 0.8125rem;
    font-family: monospace;
    word-break: break-all;
}

.content-area {
    flex: 1;
    margin-left: var(--sidebar-width);
    max-width: 900px;
    padding: 40px;
}

.report-content {
    background: var(--bg-primary);
    border-radius: 12px;
    padding: 32px;
    box-shadow: 0 4px 6px -1px rgba(0, 0, 0, 0.1);
}

.report-content h1,
.report-content h2,
.report-content h3 {
    margin: 24px 0 12px;
}

.report-content p,
.report-content ul,
.report-content ol {
    margin: 12px 0;
}

.report-content code {
    background: var(--bg-secondary);
    padding: 2px 6px;
    border-radius: 4px;
    font-size: 0.875rem;
}

.report-content pre {
    background: #1F2937;
    color: #F9FAFB;
    padding: 16px;
    border-radius: 8px;
    overflow-x: auto;
    margin: 16px 0;
}

.content-footer {
    margin-top: 32px;
    font-size: 0.875rem;
    color: var(--text-secondary);
}

.back-to-top {
    position: fixed;
    bottom: 24px;
    right: 24px;
    width: 44px;
    height: 44px;
    background: var(--primary-color);
    color: white;
    border: none;
    border-radius: 50%;
    cursor: pointer;
    opacity: 0;
    transition: opacity 0.3s ease;
}

.back-to-top.visible {
    opacity: 1;
}

@media (max-width: 768px) {
    .sidebar {
        display: none;
    }

    .content-area {
        margin-left: 0;
        padding: 20px;
    }
}`

const reportJS = `function generateTOC() {
    const content = document.getElementById('reportContent');
    const toc = document.getElementById('toc');
    if (!content || !toc) return;

    const headings = content.querySelectorAll('h1, h2, h3');
    if (headings.length === 0) {
        toc.style.display = 'none';
        return;
    }

    const list = document.createElement('ul');
    headings.forEach((heading, index) => {
        if (!heading.id) {
            heading.id = 'heading-' + index;
        }
        const item = document.createElement('li');
        const link = document.createElement('a');
        link.href = '#' + heading.id;
        link.textContent = heading.textContent;
        item.appendChild(link);
        list.appendChild(item);
    });
    toc.appendChild(list);
}

function highlightCurrentSection() {
    const headings = document.querySelectorAll('#reportContent h1, #reportContent h2, #reportContent h3');
    const links = document.querySelectorAll('.toc a');

    let current = '';
    headings.forEach(heading => {
        if (heading.getBoundingClientRect().top <= 100) {
            current = heading.id;
        }
    });

    links.forEach(link => {
        link.classList.toggle('active', link.getAttribute('href') === '#' + current);
    });
}

function setupBackToTop() {
    const btn = document.getElementById('backToTop');
    if (!btn) return;

    window.addEventListener('scroll', () => {
        btn.classList.toggle('visible', window.pageYOffset > 300);
    });

    btn.addEventListener('click', () => {
        window.scrollTo({ top: 0, behavior: 'smooth' });
    });
}

document.addEventListener('DOMContentLoaded', () => {
    generateTOC();
    setupBackToTop();
    window.addEventListener('scroll', highlightCurrentSection);
    highlightCurrentSection();
});`
